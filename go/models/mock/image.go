package mock

import (
	"github.com/lunixbochs/mclf/go/models"
)

// Image records every call it receives. Setting one of the Fail fields makes
// the matching call return that error instead of recording.
type Image struct {
	Regions   []models.SegmentData
	Entries   []uint64
	Functions []models.Symbol
	Labels    []models.Symbol
	Overlays  []uint64

	// FailRegion is keyed by region name.
	FailRegion   map[string]error
	FailEntry    error
	FailFunction error
	FailLabel    error
	FailOverlay  error
}

var _ models.Image = &Image{}

func (i *Image) CreateRegion(seg *models.SegmentData) error {
	if err := i.FailRegion[seg.Name]; err != nil {
		return err
	}
	i.Regions = append(i.Regions, *seg)
	return nil
}

func (i *Image) AddEntryPoint(addr uint64) error {
	if i.FailEntry != nil {
		return i.FailEntry
	}
	i.Entries = append(i.Entries, addr)
	return nil
}

func (i *Image) CreateFunction(addr uint64, name string) error {
	if i.FailFunction != nil {
		return i.FailFunction
	}
	i.Functions = append(i.Functions, models.Symbol{Name: name, Addr: addr, Kind: models.SymFunction})
	return nil
}

func (i *Image) CreateLabel(addr uint64, name string) error {
	if i.FailLabel != nil {
		return i.FailLabel
	}
	i.Labels = append(i.Labels, models.Symbol{Name: name, Addr: addr, Kind: models.SymLabel})
	return nil
}

func (i *Image) CreateOverlay(addr uint64, t *models.StructType) error {
	if i.FailOverlay != nil {
		return i.FailOverlay
	}
	i.Overlays = append(i.Overlays, addr)
	return nil
}

func (i *Image) Region(name string) *models.SegmentData {
	for k := range i.Regions {
		if i.Regions[k].Name == name {
			return &i.Regions[k]
		}
	}
	return nil
}

// Sink collects diagnostics forwarded during a load.
type Sink struct {
	Messages []string
	Levels   []models.Severity
}

func (s *Sink) Diag(sev models.Severity, msg string) {
	s.Levels = append(s.Levels, sev)
	s.Messages = append(s.Messages, msg)
}
