package loader

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/lunixbochs/mclf/go/models"
)

var ErrFormatMismatch = errors.New("not an MCLF image")

// State is how far a load got. Once decoding succeeds a load always reaches
// StateLoaded, possibly with diagnostics.
type State int

const (
	StateStart State = iota
	StateSniffed
	StateDecoded
	StateMaterialized
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateSniffed:
		return "sniffed"
	case StateDecoded:
		return "decoded"
	case StateMaterialized:
		return "materialized"
	case StateLoaded:
		return "loaded"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Options struct {
	// SkipOverlay leaves the header overlay out.
	SkipOverlay bool
	// Overlays are placed after the header overlay, in order. An overlay
	// that collides with one placed earlier is refused.
	Overlays []Overlay
	// Strict makes Load return a *LoadError when any error diagnostic was
	// reported. The image is populated either way.
	Strict bool
}

type Result struct {
	State    State
	Spec     models.LoadSpec
	Header   *Header
	Segments []models.SegmentData
	Symbols  []models.Symbol
	Diags    models.Diagnostics
}

type LoadError struct {
	Diags models.Diagnostics
}

func (e *LoadError) Error() string {
	n := e.Diags.Count(models.SevError)
	if n == 1 {
		return "load finished with 1 error"
	}
	return fmt.Sprintf("load finished with %d errors", n)
}

// Load runs the full pipeline over r and writes the result into img. Only
// format mismatch, header decoding, reading segment bytes, and cancellation
// are fatal; every other failure becomes a diagnostic in the Result and is
// forwarded to sink when one is given. ctx is checked between stages only.
//
// Writes into img happen in a fixed order: regions, then the entry point and
// symbols, then overlays (the header overlay first, then opts.Overlays).
func Load(ctx context.Context, r io.ReaderAt, spec *models.LoadSpec, img models.Image, opts *Options, sink models.DiagSink) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	res := &Result{State: StateStart}
	report := func(diags models.Diagnostics) {
		res.Diags = append(res.Diags, diags...)
		if sink == nil {
			return
		}
		for _, d := range diags {
			sink.Diag(d.Severity, d.String())
		}
	}
	cancelled := func(stage string) error {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "load cancelled before %s", stage)
		}
		return nil
	}

	specs := MclfLoader{}.FindLoadSpecs(r)
	if len(specs) == 0 {
		return res, errors.WithStack(ErrFormatMismatch)
	}
	if spec != nil && spec.Loader != MclfLoaderName {
		return res, errors.Wrapf(ErrFormatMismatch, "load spec belongs to %s", spec.Loader)
	}
	res.Spec = specs[0]
	res.State = StateSniffed

	if err := cancelled("decoding"); err != nil {
		return res, err
	}
	h, err := DecodeHeader(r)
	if err != nil {
		return res, err
	}
	res.Header = h
	res.Spec.ImageBase = uint64(h.TextVa)
	res.State = StateDecoded

	segs, err := Segments(h, r)
	if err != nil {
		return res, err
	}
	res.Segments = segs
	if err := cancelled("creating regions"); err != nil {
		return res, err
	}
	report(Materialize(img, segs))
	res.State = StateMaterialized

	if err := cancelled("annotating"); err != nil {
		return res, err
	}
	res.Symbols = Symbols(h)
	report(Annotate(img, h))

	if err := cancelled("placing overlays"); err != nil {
		return res, err
	}
	var overlays []Overlay
	if !opts.SkipOverlay {
		overlays = append(overlays, Overlay{Addr: uint64(h.TextVa), Type: HeaderType(h)})
	}
	overlays = append(overlays, opts.Overlays...)
	report(Project(img, overlays))
	res.State = StateLoaded

	if opts.Strict && res.Diags.Count(models.SevError) > 0 {
		return res, &LoadError{Diags: res.Diags}
	}
	return res, nil
}
