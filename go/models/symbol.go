package models

import "fmt"

type SymbolKind int

const (
	SymFunction SymbolKind = iota
	SymLabel
)

func (k SymbolKind) String() string {
	switch k {
	case SymFunction:
		return "function"
	case SymLabel:
		return "label"
	}
	return fmt.Sprintf("SymbolKind(%d)", int(k))
}

type Symbol struct {
	Name string
	Addr uint64
	Kind SymbolKind
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s %s@%#x", s.Kind, s.Name, s.Addr)
}
