package source

import (
	"fmt"

	"fortio.org/safecast"
)

// Span is a half-open byte range [Start, End) inside a file.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

// SpanAt builds a span from a byte offset and a length, as reported by front-ends.
func SpanAt(file FileID, offset, length int) (Span, error) {
	start, err := safecast.Conv[uint32](offset)
	if err != nil {
		return Span{}, fmt.Errorf("span offset: %w", err)
	}
	n, err := safecast.Conv[uint32](length)
	if err != nil {
		return Span{}, fmt.Errorf("span length: %w", err)
	}
	return Span{File: file, Start: start, End: start + n}, nil
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover returns the smallest span containing both s and other.
// Spans from different files are not merged.
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}
