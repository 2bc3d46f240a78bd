package loader

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"

	"github.com/pkg/errors"

	"github.com/lunixbochs/mclf/go/models"
)

var ErrUnknownMagic = errors.New("could not identify file magic")

var loaders = []models.Loader{MclfLoader{}}

// Probe asks every known loader for load specs, in registration order.
func Probe(r io.ReaderAt) ([]models.LoadSpec, error) {
	var specs []models.LoadSpec
	for _, l := range loaders {
		specs = append(specs, l.FindLoadSpecs(r)...)
	}
	if len(specs) == 0 {
		return nil, errors.WithStack(ErrUnknownMagic)
	}
	return specs, nil
}

// LoadFile reads path into memory, probes it and loads it into img.
func LoadFile(ctx context.Context, path string, img models.Image, opts *Options, sink models.DiagSink) (*Result, error) {
	p, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(p)
	specs, err := Probe(r)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return Load(ctx, r, &specs[0], img, opts, sink)
}
