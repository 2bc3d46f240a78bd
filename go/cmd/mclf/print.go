package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/lunixbochs/fvbommel-util/sortorder"
	"github.com/mgutz/ansi"

	"github.com/lunixbochs/mclf/go/loader"
	"github.com/lunixbochs/mclf/go/models"
	"github.com/lunixbochs/mclf/go/models/mem"
)

type printer struct {
	w     io.Writer
	color bool
}

func (p *printer) paint(s, style string) string {
	if !p.color {
		return s
	}
	return ansi.Color(s, style)
}

func (p *printer) section(name string) {
	fmt.Fprintf(p.w, "%s\n", p.paint("["+name+"]", "default+b"))
}

func (p *printer) header(h *loader.Header) {
	p.section("header")
	fmt.Fprintf(p.w, "  version   %s\n", h.VersionString())
	fmt.Fprintf(p.w, "  service   %s (%d instances, %d threads)\n", h.ServiceTypeName(), h.NumInstances, h.NumThreads)
	fmt.Fprintf(p.w, "  memory    %s\n", h.MemTypeName())
	fmt.Fprintf(p.w, "  uuid      %s\n", h.UUID())
	fmt.Fprintf(p.w, "  entry     %s\n", p.paint(fmt.Sprintf("%#x", h.Entry), "green"))
}

// sortSymbols orders by address, then by name in natural order.
func sortSymbols(syms []models.Symbol) []models.Symbol {
	ret := append([]models.Symbol(nil), syms...)
	sort.SliceStable(ret, func(i, j int) bool {
		if ret[i].Addr != ret[j].Addr {
			return ret[i].Addr < ret[j].Addr
		}
		return sortorder.NaturalLess(ret[i].Name, ret[j].Name)
	})
	return ret
}

func (p *printer) image(img *mem.Image) {
	p.section("regions")
	for _, pg := range img.Mem {
		fmt.Fprintf(p.w, "  %s\n", pg)
	}
	if len(img.Entries) > 0 {
		p.section("entry points")
		for _, e := range img.Entries {
			fmt.Fprintf(p.w, "  %#x\n", e)
		}
	}
	if len(img.Symbols) > 0 {
		p.section("symbols")
		for _, s := range sortSymbols(img.Symbols) {
			fmt.Fprintf(p.w, "  %#010x %-8s %s\n", s.Addr, s.Kind, p.paint(s.Name, "cyan"))
		}
	}
	for _, o := range img.Overlays {
		p.section(fmt.Sprintf("%s @ %#x", o.Type.Name, o.Addr))
		width := 0
		for _, v := range o.Values {
			if len(v.Name) > width {
				width = len(v.Name)
			}
		}
		for _, v := range o.Values {
			line := fmt.Sprintf("  +%#04x %-*s %s", v.Offset, width, v.Name, v.Value)
			if v.Comment != "" {
				line += p.paint(" // "+v.Comment, "black+h")
			}
			fmt.Fprintln(p.w, line)
		}
	}
}

func (p *printer) diags(diags models.Diagnostics) {
	if len(diags) == 0 {
		return
	}
	p.section("diagnostics")
	for _, d := range diags {
		style := "yellow"
		if d.Severity == models.SevError {
			style = "red"
		}
		fmt.Fprintf(p.w, "  %s %s\n", p.paint(strings.ToUpper(d.Severity.String()), style), d)
	}
}

type regionJSON struct {
	Name    string `json:"name"`
	Addr    uint64 `json:"addr"`
	Size    uint64 `json:"size"`
	Prot    string `json:"prot"`
	Zero    bool   `json:"zero"`
	FileOff uint64 `json:"file_offset,omitempty"`
}

type symbolJSON struct {
	Name string `json:"name"`
	Addr uint64 `json:"addr"`
	Kind string `json:"kind"`
}

type fieldJSON struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
	Size   int    `json:"size"`
	Value  string `json:"value"`
}

type overlayJSON struct {
	Type   string      `json:"type"`
	Addr   uint64      `json:"addr"`
	Fields []fieldJSON `json:"fields"`
}

type diagJSON struct {
	Severity string `json:"severity"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

type imageJSON struct {
	File        string        `json:"file,omitempty"`
	State       string        `json:"state,omitempty"`
	Regions     []regionJSON  `json:"regions"`
	Entries     []uint64      `json:"entries"`
	Symbols     []symbolJSON  `json:"symbols"`
	Overlays    []overlayJSON `json:"overlays"`
	Diagnostics []diagJSON    `json:"diagnostics,omitempty"`
}

func toJSON(img *mem.Image, res *loader.Result) *imageJSON {
	out := &imageJSON{File: img.File, Entries: img.Entries}
	for _, pg := range img.Mem {
		r := regionJSON{Name: pg.Desc, Addr: pg.Addr, Size: pg.Size, Prot: models.ProtString(pg.Prot), Zero: pg.File == nil}
		if pg.File != nil {
			r.FileOff = pg.File.Off
		}
		out.Regions = append(out.Regions, r)
	}
	for _, s := range sortSymbols(img.Symbols) {
		out.Symbols = append(out.Symbols, symbolJSON{Name: s.Name, Addr: s.Addr, Kind: s.Kind.String()})
	}
	for _, o := range img.Overlays {
		oj := overlayJSON{Type: o.Type.Name, Addr: o.Addr}
		for _, v := range o.Values {
			oj.Fields = append(oj.Fields, fieldJSON{Name: v.Name, Offset: v.Offset, Size: v.Size, Value: v.Value})
		}
		out.Overlays = append(out.Overlays, oj)
	}
	if res != nil {
		out.State = res.State.String()
		for _, d := range res.Diags {
			out.Diagnostics = append(out.Diagnostics, diagJSON{
				Severity: d.Severity.String(),
				Kind:     d.Kind.String(),
				Message:  d.String(),
			})
		}
	}
	return out
}

func writeJSON(w io.Writer, img *mem.Image, res *loader.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toJSON(img, res))
}
