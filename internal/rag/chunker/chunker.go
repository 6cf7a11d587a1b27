// Package chunker splits extracted document text into bounded, overlapping
// segments for embedding.
//
// All sizes are counted in Unicode code points (runes), never bytes, so a
// segment never splits a multi-byte character.
package chunker

import (
	"errors"
	"fmt"
)

// separators ordered from the best semantic boundary to the worst
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune(" "),
}

var ErrInvalidParams = errors.New("invalid chunking parameters")

type Splitter struct {
	size    int
	overlap int
}

func New(targetSize, overlap int) (*Splitter, error) {
	if targetSize <= 0 {
		return nil, fmt.Errorf("%w: target size %d must be positive", ErrInvalidParams, targetSize)
	}
	if overlap < 0 || overlap >= targetSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidParams, overlap, targetSize)
	}
	return &Splitter{size: targetSize, overlap: overlap}, nil
}

// Chunk is a convenience wrapper around New and Splitter.Chunk.
func Chunk(text string, targetSize, overlap int) ([]string, error) {
	s, err := New(targetSize, overlap)
	if err != nil {
		return nil, err
	}
	return s.Chunk(text), nil
}

func (s *Splitter) Size() int    { return s.size }
func (s *Splitter) Overlap() int { return s.overlap }

// Chunk returns the segments of text. Every segment after the first starts
// exactly Overlap runes before the end of the previous one, so dropping the
// first Overlap runes of each later segment and concatenating rebuilds text.
func (s *Splitter) Chunk(text string) []string {
	r := []rune(text)
	n := len(r)
	if n == 0 {
		return nil
	}
	if n <= s.size {
		return []string{text}
	}

	var segments []string
	start := 0
	for {
		end := start + s.size
		if end >= n {
			segments = append(segments, string(r[start:n]))
			return segments
		}

		cut := s.cutPoint(r, start, end)
		segments = append(segments, string(r[start:cut]))
		start = cut - s.overlap
	}
}

// cutPoint picks where the segment starting at start should end, at most end.
// It only looks at the back half of the window, and never so early that the
// next segment would fail to advance.
func (s *Splitter) cutPoint(r []rune, start, end int) int {
	minCut := start + s.size/2
	if floor := start + s.overlap + 1; floor > minCut {
		minCut = floor
	}
	if minCut > end {
		return end
	}

	for _, sep := range separators {
		for i := end - len(sep); i+len(sep) >= minCut && i >= start; i-- {
			if hasPrefixAt(r, i, sep) {
				return i + len(sep)
			}
		}
	}
	return end
}

func hasPrefixAt(r []rune, i int, sep []rune) bool {
	if i+len(sep) > len(r) {
		return false
	}
	for j, c := range sep {
		if r[i+j] != c {
			return false
		}
	}
	return true
}
