package mem

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lunixbochs/mclf/go/models"
)

// FileDesc records where a page's bytes came from in the loaded file.
type FileDesc struct {
	Name string
	Off  uint64
	Len  uint64
}

// Page is a mapped range. Data holds the backing bytes and may be shorter
// than Size; the rest of the page reads as zero.
type Page struct {
	Addr uint64
	Size uint64
	Prot int
	Data []byte

	Desc string
	File *FileDesc
}

func (p *Page) String() string {
	desc := fmt.Sprintf("0x%x-0x%x %s", p.Addr, p.Addr+p.Size, models.ProtString(p.Prot))
	if p.Desc != "" {
		desc += fmt.Sprintf(" [%s]", p.Desc)
	}
	if p.File != nil {
		desc += fmt.Sprintf(" %s@%#x", p.File.Name, p.File.Off)
	} else {
		desc += " zero"
	}
	return desc
}

func (p *Page) Contains(addr uint64) bool {
	return addr >= p.Addr && addr < p.Addr+p.Size
}

// start = max(s1, s2), end = min(e1, e2), ok = end > start
func (p *Page) Intersect(addr, size uint64) (uint64, uint64, bool) {
	start := p.Addr
	end := p.Addr + p.Size
	e2 := addr + size
	if end > e2 {
		end = e2
	}
	if start < addr {
		start = addr
	}
	return start, end - start, end > start
}

func (p *Page) Overlaps(addr, size uint64) bool {
	_, _, ok := p.Intersect(addr, size)
	return ok
}

type Pages []*Page

func (p Pages) Len() int           { return len(p) }
func (p Pages) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
func (p Pages) Less(i, j int) bool { return p[i].Addr < p[j].Addr }

func (p Pages) String() string {
	s := make([]string, len(p))
	for i, v := range p {
		s[i] = v.String()
	}
	return strings.Join(s, "\n")
}

// binary search to find index of first region containing addr, if any, else -1
func (p Pages) bsearch(addr uint64) int {
	l := 0
	r := len(p) - 1
	for l <= r {
		mid := (l + r) / 2
		e := p[mid]
		if addr >= e.Addr {
			if addr < e.Addr+e.Size {
				return mid
			}
			l = mid + 1
		} else if addr < e.Addr {
			r = mid - 1
		}
	}
	return -1
}

func (p Pages) Find(addr uint64) *Page {
	i := p.bsearch(addr)
	if i >= 0 {
		return p[i]
	}
	return nil
}

// FindRange returns every page overlapping addr:addr+size, in address order.
func (p Pages) FindRange(addr, size uint64) Pages {
	var ret Pages
	for _, pg := range p {
		if pg.Overlaps(addr, size) {
			ret = append(ret, pg)
		}
	}
	return ret
}

func (p Pages) FindName(name string) *Page {
	for _, pg := range p {
		if pg.Desc == name {
			return pg
		}
	}
	return nil
}

// RangeValid reports whether addr:addr+size is fully mapped. If prot > 0,
// protGood reports whether every page has the whole mask.
func (p Pages) RangeValid(addr, size uint64, prot int) (mapGood bool, protGood bool) {
	first := p.bsearch(addr)
	if first == -1 {
		return false, false
	}
	protGood = true
	end := addr + size
	for _, mm := range p[first:] {
		if mm.Contains(addr) {
			if prot > 0 && mm.Prot&prot != prot {
				protGood = false
			}
			addr = mm.Addr + mm.Size
			if addr >= end {
				break
			}
		} else {
			break
		}
	}
	return addr >= end, protGood
}

func (p *Pages) insert(pg *Page) {
	*p = append(*p, pg)
	sort.Sort(*p)
}
