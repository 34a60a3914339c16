package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/term"

	"github.com/jtang613/pdbview/internal/config"
	"github.com/jtang613/pdbview/pkg/pdb"
)

// Options controls rendering.
type Options struct {
	Sections Section
	Color    bool // plain only
	Indent   bool // json only
}

// ColorEnabled resolves a color mode against the file being written to.
func ColorEnabled(mode config.ColorMode, f *os.File) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Render writes info in the given format.
func Render(w io.Writer, format config.Format, info *pdb.AssemblyInfo, opts Options) error {
	if opts.Sections == 0 {
		opts.Sections = AllSections
	}
	doc := NewDocument(info)

	switch format {
	case config.FormatPlain:
		return writePlain(w, doc, opts)
	case config.FormatJSON:
		return writeJSON(w, selection(doc, opts.Sections), opts.Indent)
	case config.FormatMsgpack:
		return writeMsgpack(w, selection(doc, opts.Sections))
	}
	return fmt.Errorf("unsupported format: %s", format)
}

// RenderType writes a single type entry.
func RenderType(w io.Writer, format config.Format, e TypeEntry, opts Options) error {
	switch format {
	case config.FormatPlain:
		p := newPlain(w, opts.Color)
		p.typeEntry(e)
		return p.flush()
	case config.FormatJSON:
		return writeJSON(w, e, opts.Indent)
	case config.FormatMsgpack:
		return writeMsgpack(w, e)
	}
	return fmt.Errorf("unsupported format: %s", format)
}

func writeJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false) // keep <, > and & in C++ names readable
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeMsgpack encodes v using the json field names, so both encodings
// share one schema and json:"-" fields stay out.
func writeMsgpack(w io.Writer, v any) error {
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode msgpack: %w", err)
	}
	return nil
}
