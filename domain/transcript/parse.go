package transcript

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedCue is returned when a subtitle block has no valid timing line
var ErrMalformedCue = errors.New("malformed subtitle cue")

// cueTimestamp matches [HH:]MM:SS(,|.)mmm
var cueTimestamp = regexp.MustCompile(`^(?:(\d+):)?(\d{2}):(\d{2})[,.](\d{3})$`)

// ParseSRT reads SubRip cues back into segments
func ParseSRT(data string) ([]Segment, error) {
	return parseCues(data)
}

// ParseVTT reads WebVTT cues back into segments. The header block is skipped.
func ParseVTT(data string) ([]Segment, error) {
	data = strings.TrimPrefix(normalizeNewlines(data), "\ufeff")
	if !strings.HasPrefix(data, vttHeader) {
		return nil, fmt.Errorf("missing %s header", vttHeader)
	}
	blocks := splitBlocks(data)
	if len(blocks) == 0 {
		return nil, nil
	}
	return parseBlocks(blocks[1:])
}

// ParseTimestamp converts a cue timestamp into seconds
func ParseTimestamp(s string) (float64, error) {
	m := cueTimestamp.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid cue timestamp %q", s)
	}

	hours := 0
	if m[1] != "" {
		hours, _ = strconv.Atoi(m[1])
	}
	minutes, _ := strconv.Atoi(m[2])
	secs, _ := strconv.Atoi(m[3])
	millis, _ := strconv.Atoi(m[4])
	if minutes > 59 || secs > 59 {
		return 0, fmt.Errorf("invalid cue timestamp %q: minutes and seconds must be 0-59", s)
	}

	totalMs := ((hours*60+minutes)*60+secs)*1000 + millis
	return float64(totalMs) / 1000, nil
}

func parseCues(data string) ([]Segment, error) {
	return parseBlocks(splitBlocks(strings.TrimPrefix(normalizeNewlines(data), "\ufeff")))
}

func parseBlocks(blocks [][]string) ([]Segment, error) {
	segments := make([]Segment, 0, len(blocks))
	for i, lines := range blocks {
		timing := -1
		for j, line := range lines {
			if strings.Contains(line, "-->") {
				timing = j
				break
			}
		}
		if timing < 0 {
			// VTT NOTE and STYLE blocks carry no timing
			if strings.HasPrefix(lines[0], "NOTE") || strings.HasPrefix(lines[0], "STYLE") {
				continue
			}
			return nil, fmt.Errorf("block %d: %w", i+1, ErrMalformedCue)
		}

		bounds := strings.SplitN(lines[timing], "-->", 2)
		start, err := ParseTimestamp(bounds[0])
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i+1, err)
		}
		// VTT cue settings may follow the end time
		endField := strings.Fields(bounds[1])
		if len(endField) == 0 {
			return nil, fmt.Errorf("block %d: %w", i+1, ErrMalformedCue)
		}
		end, err := ParseTimestamp(endField[0])
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i+1, err)
		}

		segments = append(segments, Segment{
			Start: start,
			End:   end,
			Text:  strings.Join(lines[timing+1:], "\n"),
		})
	}
	return segments, nil
}

// splitBlocks groups non-blank lines separated by one or more blank lines
func splitBlocks(data string) [][]string {
	var blocks [][]string
	var current []string
	for _, line := range strings.Split(data, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, strings.TrimRight(line, " \t"))
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
