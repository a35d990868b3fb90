package transcript

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNegativeTime is returned when a segment starts or ends before zero
	ErrNegativeTime = errors.New("segment time must not be negative")

	// ErrEndBeforeStart is returned when a segment ends before it starts
	ErrEndBeforeStart = errors.New("segment ends before it starts")

	// ErrOutOfOrder is returned when segment starts decrease
	ErrOutOfOrder = errors.New("segments are not in chronological order")
)

// Segment is a timestamped span of transcript text. Times are in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Duration returns the length of the segment in seconds
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Result is the structured output of one transcription
type Result struct {
	Text       string    `json:"text"`
	Language   string    `json:"language"`
	Duration   float64   `json:"duration"`
	Translated bool      `json:"translated"`
	Segments   []Segment `json:"segments"`
}

// Validate checks the ordering invariants of the segment list
func (r *Result) Validate() error {
	for i, seg := range r.Segments {
		if seg.Start < 0 || seg.End < 0 {
			return fmt.Errorf("segment %d: %w", i, ErrNegativeTime)
		}
		if seg.End < seg.Start {
			return fmt.Errorf("segment %d: %w (start %.3f, end %.3f)", i, ErrEndBeforeStart, seg.Start, seg.End)
		}
		if i > 0 && seg.Start < r.Segments[i-1].Start {
			return fmt.Errorf("segment %d: %w", i, ErrOutOfOrder)
		}
	}
	return nil
}

// Normalize trims segment text, clamps negative or inverted times, orders
// segments by start and fills Text from the segments when it is empty.
func (r *Result) Normalize() {
	for i := range r.Segments {
		seg := &r.Segments[i]
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Start < 0 {
			seg.Start = 0
		}
		if seg.End < seg.Start {
			seg.End = seg.Start
		}
	}

	sort.SliceStable(r.Segments, func(i, j int) bool {
		return r.Segments[i].Start < r.Segments[j].Start
	})

	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" {
		r.Text = r.JoinSegments(" ")
	}
}

// JoinSegments concatenates non-empty segment texts with sep
func (r *Result) JoinSegments(sep string) string {
	parts := make([]string, 0, len(r.Segments))
	for _, seg := range r.Segments {
		if seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, sep)
}

// Search returns the segments whose text contains term, ignoring case.
// An empty term matches every segment.
func (r *Result) Search(term string) []Segment {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return append([]Segment(nil), r.Segments...)
	}

	var matches []Segment
	for _, seg := range r.Segments {
		if strings.Contains(strings.ToLower(seg.Text), term) {
			matches = append(matches, seg)
		}
	}
	return matches
}

// Filtered returns a copy of the result restricted to segments matching term
func (r *Result) Filtered(term string) *Result {
	out := *r
	out.Segments = r.Search(term)
	if strings.TrimSpace(term) != "" {
		out.Text = out.JoinSegments(" ")
	}
	return &out
}
