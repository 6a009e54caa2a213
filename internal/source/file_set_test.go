package source

import "testing"

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("prog.lir", []byte("let x = 1\nlet y = x\n\nend"))

	tests := []struct {
		name string
		off  uint32
		want LineCol
	}{
		{name: "file start", off: 0, want: LineCol{Line: 1, Col: 1}},
		{name: "inside first line", off: 4, want: LineCol{Line: 1, Col: 5}},
		{name: "newline belongs to its line", off: 9, want: LineCol{Line: 1, Col: 10}},
		{name: "second line start", off: 10, want: LineCol{Line: 2, Col: 1}},
		{name: "empty line", off: 20, want: LineCol{Line: 3, Col: 1}},
		{name: "last line", off: 22, want: LineCol{Line: 4, Col: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
			if got != tt.want {
				t.Fatalf("offset %d: got %+v, want %+v", tt.off, got, tt.want)
			}
		})
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("prog.lir", []byte("\xEF\xBB\xBFfirst\r\nsecond\nthird"))
	f := fs.Get(id)
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("expected BOM and CRLF flags, got %b", f.Flags)
	}
	for i, want := range []string{"first", "second", "third", ""} {
		if got := f.GetLine(uint32(i + 1)); got != want {
			t.Errorf("line %d: got %q, want %q", i+1, got, want)
		}
	}
}

func TestSpanAtAndCover(t *testing.T) {
	a, err := SpanAt(1, 4, 3)
	if err != nil {
		t.Fatalf("SpanAt: %v", err)
	}
	if a.Start != 4 || a.End != 7 || a.Len() != 3 {
		t.Fatalf("unexpected span %v", a)
	}
	if _, err := SpanAt(1, -1, 3); err == nil {
		t.Fatalf("expected error for negative offset")
	}
	b := Span{File: 1, Start: 10, End: 12}
	if got := a.Cover(b); got != (Span{File: 1, Start: 4, End: 12}) {
		t.Fatalf("cover: got %v", got)
	}
	if got := a.Cover(Span{File: 2, Start: 0, End: 1}); got != a {
		t.Fatalf("cover across files should keep receiver, got %v", got)
	}
}
