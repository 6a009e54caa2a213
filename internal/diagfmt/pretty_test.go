package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"lirc/internal/diag"
	"lirc/internal/source"
)

func sampleBag(t *testing.T) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("/work/proj/src/main.lir", []byte("proc main() {\n\tlet x: Int = 'c'\n}\n"))
	bag := diag.NewBag(10)
	// 'c' literal on line 2.
	bag.Add(diag.NewError(diag.LirMismatchedTypes, source.Span{File: id, Start: 28, End: 31}, "mismatched types: expected Int, found Char").
		WithNote(source.Span{File: id, Start: 19, End: 20}, "binding declared here"))
	return bag, fs
}

func TestPrettyHeaderAndCaret(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, ShowNotes: true})
	out := buf.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), out)
	}
	if want := "main.lir:2:15: ERROR LIR3003: mismatched types: expected Int, found Char"; lines[0] != want {
		t.Fatalf("header = %q, want %q", lines[0], want)
	}
	if want := "2 |     let x: Int = 'c'"; lines[1] != want {
		t.Fatalf("source line = %q, want %q", lines[1], want)
	}
	// The tab expands to four columns, so the caret sits under the literal.
	if want := " |" + strings.Repeat(" ", 18) + "^~~"; lines[2] != want {
		t.Fatalf("caret line = %q, want %q", lines[2], want)
	}
	if !strings.Contains(lines[3], "note: main.lir:2:6: binding declared here") {
		t.Fatalf("note line = %q", lines[3])
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("colour disabled but escape codes found")
	}
}

func TestPrettyNotesHidden(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	if strings.Contains(buf.String(), "note:") {
		t.Fatalf("notes printed while ShowNotes is false:\n%s", buf.String())
	}
}

func TestPrettyColor(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Color: true})
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected ANSI escapes with Color enabled")
	}
}

func TestPrettyWithoutSpan(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("prog.lir", []byte("x\n"))
	bag := diag.NewBag(4)
	d := diag.NewError(diag.LirInternal, source.Span{File: id}, "boom")
	d.HasSpan = false
	bag.Add(d)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})
	if got, want := buf.String(), "prog.lir: ERROR LIR3099: boom\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPathModes(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("/home/user/project/src/test.lir", []byte("x\n"))
	f := fs.Get(id)

	tests := []struct {
		name string
		mode PathMode
		base string
		want string
	}{
		{name: "basename", mode: PathModeBasename, want: "test.lir"},
		{name: "relative", mode: PathModeRelative, base: "/home/user/project", want: "src/test.lir"},
		{name: "auto inside base", mode: PathModeAuto, base: "/home/user/project", want: "src/test.lir"},
		{name: "auto outside base", mode: PathModeAuto, base: "/opt/other", want: "/home/user/project/src/test.lir"},
		{name: "absolute", mode: PathModeAbsolute, want: "/home/user/project/src/test.lir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatPath(f, tt.mode, tt.base); got != tt.want {
				t.Fatalf("formatPath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePathMode(t *testing.T) {
	if m, err := ParsePathMode("rel"); err != nil || m != PathModeRelative {
		t.Fatalf("ParsePathMode(rel) = %v, %v", m, err)
	}
	if _, err := ParsePathMode("sideways"); err == nil {
		t.Fatalf("expected an error for an unknown mode")
	}
}

func TestJSONOutput(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, PathMode: PathModeBasename}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("count = %d", out.Count)
	}
	d := out.Diagnostics[0]
	if d.Code != "LIR3003" || d.Severity != "ERROR" || d.Title != "mismatched types" {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if d.Location == nil || d.Location.File != "main.lir" || d.Location.StartLine != 2 || d.Location.StartCol != 15 {
		t.Fatalf("unexpected location %+v", d.Location)
	}
	if len(d.Notes) != 0 {
		t.Fatalf("notes must be omitted unless requested")
	}
}

func TestJSONMax(t *testing.T) {
	fs := source.NewFileSet()
	bag := diag.NewBag(10)
	for range 3 {
		bag.Add(diag.NewError(diag.LirUnsized, source.Span{}, "x"))
	}
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 2})
	if out.Count != 2 {
		t.Fatalf("count = %d, want 2", out.Count)
	}
}
