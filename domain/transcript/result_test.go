package transcript

import (
	"errors"
	"testing"
)

func TestResult_Validate(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		wantErr  error
	}{
		{
			name: "ordered segments",
			segments: []Segment{
				{Start: 0, End: 1.5, Text: "a"},
				{Start: 1.5, End: 3, Text: "b"},
				{Start: 1.5, End: 1.5, Text: "c"},
			},
		},
		{
			name:     "empty list",
			segments: nil,
		},
		{
			name:     "end before start",
			segments: []Segment{{Start: 2, End: 1, Text: "a"}},
			wantErr:  ErrEndBeforeStart,
		},
		{
			name: "decreasing start",
			segments: []Segment{
				{Start: 3, End: 4, Text: "a"},
				{Start: 1, End: 2, Text: "b"},
			},
			wantErr: ErrOutOfOrder,
		},
		{
			name:     "negative start",
			segments: []Segment{{Start: -1, End: 2, Text: "a"}},
			wantErr:  ErrNegativeTime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Result{Segments: tt.segments}
			err := r.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResult_Normalize(t *testing.T) {
	r := &Result{
		Segments: []Segment{
			{Start: 4, End: 5, Text: " third "},
			{Start: 0, End: 1.2, Text: "first"},
			{Start: 2, End: 1, Text: "second"},
			{Start: -0.5, End: 0.5, Text: "zeroth"},
		},
	}

	r.Normalize()

	if err := r.Validate(); err != nil {
		t.Fatalf("normalized result fails validation: %v", err)
	}

	wantOrder := []string{"first", "zeroth", "second", "third"}
	for i, want := range wantOrder {
		if r.Segments[i].Text != want {
			t.Errorf("segment %d text = %q, want %q", i, r.Segments[i].Text, want)
		}
	}

	if r.Segments[2].End != 2 {
		t.Errorf("inverted segment end = %v, want clamped to 2", r.Segments[2].End)
	}
	if r.Text != "first zeroth second third" {
		t.Errorf("Text = %q, want joined segments", r.Text)
	}
}

func TestResult_NormalizeKeepsEngineText(t *testing.T) {
	r := &Result{
		Text:     "  Hello world.  ",
		Segments: []Segment{{Start: 0, End: 1, Text: "Hello world."}},
	}
	r.Normalize()
	if r.Text != "Hello world." {
		t.Errorf("Text = %q", r.Text)
	}
}

func TestResult_Search(t *testing.T) {
	r := &Result{
		Segments: []Segment{
			{Start: 0, End: 1, Text: "Welcome back"},
			{Start: 1, End: 2, Text: "today we cook pasta"},
			{Start: 2, End: 3, Text: "PASTA needs salt"},
		},
	}

	tests := []struct {
		term string
		want int
	}{
		{"pasta", 2},
		{"Welcome", 1},
		{"", 3},
		{"rice", 0},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			if got := r.Search(tt.term); len(got) != tt.want {
				t.Errorf("Search(%q) returned %d segments, want %d", tt.term, len(got), tt.want)
			}
		})
	}

	filtered := r.Filtered("pasta")
	if filtered.Text != "today we cook pasta PASTA needs salt" {
		t.Errorf("Filtered().Text = %q", filtered.Text)
	}
	if len(r.Segments) != 3 {
		t.Errorf("Filtered mutated the original result")
	}
}
