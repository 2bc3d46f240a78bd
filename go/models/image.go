package models

// Image is the mutable program image a loader populates. Implementations
// are owned by the caller; a loader assumes it is the only writer for the
// duration of one load.
type Image interface {
	CreateRegion(seg *SegmentData) error
	AddEntryPoint(addr uint64) error
	CreateFunction(addr uint64, name string) error
	CreateLabel(addr uint64, name string) error
	// CreateOverlay lays a typed record over the mapped bytes at addr.
	CreateOverlay(addr uint64, t *StructType) error
}
