package lirio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"lirc/internal/lir"
	"lirc/internal/source"
)

// SchemaVersion is bumped whenever the Node layout changes.
const SchemaVersion uint16 = 1

// ErrSchemaMismatch is returned for bundles written with another schema.
var ErrSchemaMismatch = errors.New("unsupported bundle schema")

// Bundle is the unit exchanged with a front-end: one program tree plus the
// source text its annotations point into.
type Bundle struct {
	Schema     uint16 `msgpack:"schema"`
	Name       string `msgpack:"name"`
	SourcePath string `msgpack:"source_path,omitempty"`
	SourceText string `msgpack:"source_text,omitempty"`
	Program    *Node  `msgpack:"program"`
}

// DecodeError reports a malformed node.
type DecodeError struct {
	Kind Kind
	Msg  string
}

func (e *DecodeError) Error() string {
	if e.Kind == "" {
		return "malformed bundle: " + e.Msg
	}
	return fmt.Sprintf("malformed bundle: %s: %s", e.Kind, e.Msg)
}

// Program is a decoded bundle, ready for lir.CheckProgram.
type Program struct {
	Name string
	Expr lir.Expr
	// File holds the embedded source; HasSource is false when the bundle had none.
	File      source.FileID
	HasSource bool
	Registry  *lir.Registry
	// Templates and Annotations count decoded PolyProcedures and AnnotatedExprs.
	Templates   int
	Annotations int
}

// Source is the optional text embedded next to a program.
type Source struct {
	Path string
	Text string
}

// NewBundle serialises e into a Bundle.
func NewBundle(name string, e lir.Expr, src *Source) (*Bundle, error) {
	if e == nil {
		return nil, errors.New("lirio: nil program")
	}
	var enc encoder
	n, err := enc.expr(e)
	if err != nil {
		return nil, err
	}
	b := &Bundle{Schema: SchemaVersion, Name: name, Program: n}
	if src != nil {
		b.SourcePath = src.Path
		b.SourceText = src.Text
	}
	return b, nil
}

// Encode writes e as a msgpack bundle.
func Encode(w io.Writer, name string, e lir.Expr, src *Source) error {
	b, err := NewBundle(name, e, src)
	if err != nil {
		return err
	}
	return msgpack.NewEncoder(w).Encode(b)
}

// Marshal is Encode into a byte slice.
func Marshal(name string, e lir.Expr, src *Source) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, name, e, src); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadBundle decodes the envelope without building the program.
func ReadBundle(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := msgpack.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if b.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchemaMismatch, b.Schema, SchemaVersion)
	}
	if b.Program == nil {
		return nil, &DecodeError{Msg: "missing program"}
	}
	return &b, nil
}

// Decode reads a bundle and builds its program. The embedded source, if
// any, is added to fs so diagnostics can quote it. Templates are registered
// in reg; a nil reg gets a fresh registry, keeping bundles independent.
func Decode(r io.Reader, fs *source.FileSet, reg *lir.Registry) (*Program, error) {
	b, err := ReadBundle(r)
	if err != nil {
		return nil, err
	}
	return b.Build(fs, reg)
}

// Load reads and decodes the bundle at path.
func Load(path string, fs *source.FileSet, reg *lir.Registry) (*Program, error) {
	// #nosec G304 -- path is provided by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := Decode(f, fs, reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Build turns the bundle's node tree into a program.
func (b *Bundle) Build(fs *source.FileSet, reg *lir.Registry) (*Program, error) {
	if reg == nil {
		reg = lir.NewRegistry()
	}
	d := &decoder{reg: reg}
	p := &Program{Registry: reg}
	if b.SourceText != "" && fs != nil {
		n, err := safecast.Conv[uint32](len(b.SourceText))
		if err != nil {
			return nil, fmt.Errorf("source text too large: %w", err)
		}
		path := b.SourcePath
		if path == "" {
			path = b.Name
		}
		// Spans are byte offsets into the text as written, so it is added verbatim.
		d.file = fs.Add(path, []byte(b.SourceText), source.FileVirtual)
		d.srcLen = n
		d.hasSrc = true
		p.File = d.file
		p.HasSource = true
	}
	e, err := d.expr(b.Program)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, &DecodeError{Msg: "empty program"}
	}
	p.Name = d.ident(b.Name)
	p.Expr = e
	p.Templates = d.polyCnt
	p.Annotations = d.spans
	return p, nil
}
