package transcript

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Format is a transcript export format
type Format string

const (
	FormatText Format = "txt"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatJSON Format = "json"
)

// vttHeader is the first line of every WebVTT file
const vttHeader = "WEBVTT"

// ParseFormat validates a user-supplied format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))); f {
	case FormatText, FormatSRT, FormatVTT, FormatJSON:
		return f, nil
	case "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown export format %q: use txt, srt, vtt, or json", s)
	}
}

// MimeType returns the content type used when serving or uploading the format
func (f Format) MimeType() string {
	switch f {
	case FormatSRT:
		return "application/x-subrip"
	case FormatVTT:
		return "text/vtt"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain"
	}
}

// Render produces the file contents of r in the given format
func Render(r *Result, f Format) ([]byte, error) {
	switch f {
	case FormatText:
		return []byte(RenderText(r)), nil
	case FormatSRT:
		return []byte(RenderSRT(r.Segments)), nil
	case FormatVTT:
		return []byte(RenderVTT(r.Segments)), nil
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode transcript: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", f)
	}
}

// RenderText joins segment text with newlines, falling back to the full text
func RenderText(r *Result) string {
	if len(r.Segments) == 0 {
		return r.Text
	}
	return r.JoinSegments("\n")
}

// RenderSRT renders segments as SubRip cues numbered from 1
func RenderSRT(segments []Segment) string {
	return renderCues(segments, ',')
}

// RenderVTT renders segments as a WebVTT document
func RenderVTT(segments []Segment) string {
	return vttHeader + "\n\n" + renderCues(segments, '.')
}

func renderCues(segments []Segment, msSep byte) string {
	cues := make([]string, 0, len(segments))
	for i, seg := range segments {
		cues = append(cues, fmt.Sprintf("%d\n%s --> %s\n%s\n",
			i+1,
			FormatTimestamp(seg.Start, msSep),
			FormatTimestamp(seg.End, msSep),
			seg.Text,
		))
	}
	return strings.Join(cues, "\n")
}

// FormatTimestamp renders seconds as HH:MM:SS<sep>mmm, rounded to the nearest millisecond
func FormatTimestamp(seconds float64, msSep byte) string {
	ms := int64(math.Round(seconds * 1000))
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := (ms % 3_600_000) / 60_000
	s := (ms % 60_000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, msSep, ms%1000)
}

// Filename builds the download name for an export, e.g. transcript_en-translated_1700000000000.srt
func Filename(r *Result, f Format, now time.Time) string {
	lang := ""
	switch {
	case r.Translated:
		lang = "_en-translated"
	case r.Language != "":
		lang = "_" + r.Language
	}
	return fmt.Sprintf("transcript%s_%d.%s", lang, now.UnixMilli(), f)
}
