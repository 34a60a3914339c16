package output

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/jtang613/pdbview/pkg/pdb"
	"github.com/jtang613/pdbview/pkg/pdb/codeview"
)

type plain struct {
	tw   *tabwriter.Writer
	head *color.Color
	dim  *color.Color
}

func newPlain(w io.Writer, colored bool) *plain {
	p := &plain{
		tw:   tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		head: color.New(color.FgCyan, color.Bold),
		dim:  color.New(color.Faint),
	}
	if colored {
		p.head.EnableColor()
		p.dim.EnableColor()
	} else {
		p.head.DisableColor()
		p.dim.DisableColor()
	}
	return p
}

func (p *plain) flush() error {
	if err := p.tw.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (p *plain) section(title string, n int) {
	if n >= 0 {
		title = fmt.Sprintf("%s (%d)", title, n)
	}
	fmt.Fprintln(p.tw, p.head.Sprint(title))
}

func (p *plain) row(cells ...string) {
	fmt.Fprintln(p.tw, "  "+strings.Join(cells, "\t"))
}

func writePlain(w io.Writer, doc *Document, opts Options) error {
	p := newPlain(w, opts.Color)
	s := opts.Sections

	if s.Has(SectionInfo) {
		p.buildInfo(doc.BuildInfo)
	}
	if s.Has(SectionModules) {
		p.modules(doc.Modules)
	}
	if s.Has(SectionProcedures) {
		p.section("Procedures", len(doc.Procedures))
		for _, proc := range doc.Procedures {
			p.row(addr(proc.Offset), fmt.Sprintf("%#x", proc.Length), displayName(proc.Name, proc.DemangledName),
				p.signature(proc.TypeIndex, doc), p.dim.Sprint(proc.Module))
		}
	}
	if s.Has(SectionPublics) {
		p.section("Public symbols", len(doc.Publics))
		for _, pub := range doc.Publics {
			p.row(addr(pub.Offset), pubKind(pub), displayName(pub.Name, pub.DemangledName), p.dim.Sprint(pub.Module))
		}
	}
	if s.Has(SectionGlobals) {
		p.section("Globals", len(doc.Globals))
		for _, g := range doc.Globals {
			p.row(addr(g.Offset), p.signature(g.TypeIndex, doc), displayName(g.Name, g.DemangledName),
				p.dim.Sprint(g.Module))
		}
	}
	if s.Has(SectionLabels) && len(doc.Labels) > 0 {
		p.section("Labels", len(doc.Labels))
		for _, l := range doc.Labels {
			p.row(addr(l.Offset), l.Name, p.dim.Sprint(l.Module))
		}
	}
	if s.Has(SectionTypes) {
		p.types(doc)
	}
	return p.flush()
}

func (p *plain) buildInfo(bi pdb.BuildInfo) {
	p.section("Build info", -1)
	if bi.Path != "" {
		p.row("path", bi.Path)
	}
	p.row("guid", bi.GUID.String())
	p.row("age", fmt.Sprint(bi.Age))
	p.row("version", fmt.Sprint(bi.Version))
	p.row("timestamp", fmt.Sprintf("%#x (%s)", bi.Timestamp, time.Unix(int64(bi.Timestamp), 0).UTC().Format(time.RFC3339)))
	p.row("machine", bi.Machine)
	if bi.Compiler != nil {
		p.row("compiler", compiler(bi.Compiler))
	}
	if len(bi.Arguments) > 0 {
		p.row("arguments", strings.Join(bi.Arguments, " "))
	}
}

func (p *plain) modules(mods []pdb.Module) {
	p.section("Modules", len(mods))
	for _, m := range mods {
		p.row(m.Name, p.dim.Sprint(m.ObjectFile))
		if m.Compiler != nil {
			p.row("  compiler", compiler(m.Compiler))
		}
		for _, f := range m.SourceFiles {
			sum := f.ChecksumKind.String()
			if len(f.Checksum) > 0 {
				sum += ":" + hex.EncodeToString(f.Checksum)
			}
			p.row("  source", f.Path, p.dim.Sprint(sum))
		}
	}
}

func (p *plain) types(doc *Document) {
	var named []TypeEntry
	for _, e := range doc.Types {
		switch e.Kind {
		case "class", "struct", "union", "interface", "enum":
			if e.Name != "" && !e.Forward {
				named = append(named, e)
			}
		}
	}
	p.section("Types", len(named))
	for _, e := range named {
		p.typeEntry(e)
	}
	if len(doc.Degraded) > 0 {
		idx := make([]string, len(doc.Degraded))
		for i, d := range doc.Degraded {
			idx[i] = fmt.Sprintf("%#x", uint32(d))
		}
		p.row(p.dim.Sprint("degraded"), strings.Join(idx, " "))
	}
}

func (p *plain) typeEntry(e TypeEntry) {
	p.row(fmt.Sprintf("%#x", uint32(e.Index)), e.Kind+" "+e.Signature, sizeNote(e.Size))
	for _, b := range e.Bases {
		kind := "base"
		if b.Virtual {
			kind = "virtual base"
		}
		p.row("", fmt.Sprintf("  %s %#x", kind, uint32(b.Type)), b.Access)
	}
	for _, m := range e.Members {
		off := fmt.Sprintf("+%#x", m.Offset)
		if m.Static {
			off = "static"
		}
		p.row("", "  "+off, m.TypeName+" "+m.Name)
	}
	for _, m := range e.Methods {
		p.row("", "  "+m.Property, m.Name)
	}
	for _, en := range e.Enumerators {
		p.row("", "  "+en.Name, fmt.Sprint(en.Value))
	}
}

func (p *plain) signature(idx codeview.TypeIndex, doc *Document) string {
	if e, ok := doc.Type(idx); ok {
		return e.Signature
	}
	return p.dim.Sprintf("type_%#x", uint32(idx))
}

func addr(off uint64) string { return fmt.Sprintf("0x%016x", off) }

func displayName(name, demangled string) string {
	if demangled != "" {
		return demangled
	}
	return name
}

func pubKind(pub pdb.PublicSymbol) string {
	switch {
	case pub.Function:
		return "func"
	case pub.Code:
		return "code"
	case pub.Managed, pub.MSIL:
		return "managed"
	}
	return "data"
}

func compiler(c *codeview.CompilerInfo) string {
	return fmt.Sprintf("%s %s (%s, %s)", c.VersionString, c.Frontend, c.Language, c.CPU)
}

func sizeNote(n uint64) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d bytes", n)
}
