package models

// these constants are used for memory protections
const (
	PROT_READ  = 1
	PROT_WRITE = 2
	PROT_EXEC  = 4
)

// ProtString renders prot as "rwx", with '-' for missing bits.
func ProtString(prot int) string {
	prots := []int{PROT_READ, PROT_WRITE, PROT_EXEC}
	chars := []string{"r", "w", "x"}
	s := ""
	for i := range prots {
		if prot&prots[i] != 0 {
			s += chars[i]
		} else {
			s += "-"
		}
	}
	return s
}

// SegmentData is a region request. A nil DataFunc means the region is
// zero-filled and has no backing bytes in the file.
type SegmentData struct {
	Name       string
	Off        uint64
	Addr, Size uint64
	Prot       int
	DataFunc   func() ([]byte, error)
}

func (s *SegmentData) Data() ([]byte, error) {
	if s.DataFunc == nil {
		return nil, nil
	}
	return s.DataFunc()
}

func (s *SegmentData) Zero() bool {
	return s.DataFunc == nil
}

func (s *SegmentData) End() uint64 {
	return s.Addr + s.Size
}

type Segment struct {
	Start, End uint64
}

func (s *Segment) Overlaps(o *Segment) bool {
	return (s.Start >= o.Start && s.Start < o.End) || (o.Start >= s.Start && o.Start < s.End)
}

