package converter

import (
	"regexp"
	"strconv"
)

// ProgressParser extracts completion percentages from ffmpeg stats lines
type ProgressParser struct {
	totalDuration float64
	timeRegex     *regexp.Regexp
}

// NewProgressParser creates a parser for a run of the given total duration
// in seconds. A non-positive duration disables percentage reporting.
func NewProgressParser(totalDuration float64) *ProgressParser {
	return &ProgressParser{
		totalDuration: totalDuration,
		timeRegex:     regexp.MustCompile(`time=(\d{2,}):(\d{2}):(\d{2})\.(\d{2})`),
	}
}

// ParseLine extracts the elapsed-time marker from a stats line.
// Returns false when the line carries no time= field.
func (pp *ProgressParser) ParseLine(line string) (float64, bool) {
	matches := pp.timeRegex.FindStringSubmatch(line)
	if len(matches) < 5 {
		return 0, false
	}

	hours, _ := strconv.Atoi(matches[1])
	minutes, _ := strconv.Atoi(matches[2])
	seconds, _ := strconv.Atoi(matches[3])
	centiseconds, _ := strconv.Atoi(matches[4])

	elapsed := float64(hours)*3600 +
		float64(minutes)*60 +
		float64(seconds) +
		float64(centiseconds)/100

	return elapsed, true
}

// Percentage converts elapsed seconds to a completion percentage capped at
// 99; 100 is reserved for confirmed completion. Returns false when the
// total duration is unknown.
func (pp *ProgressParser) Percentage(elapsed float64) (int, bool) {
	if pp.totalDuration <= 0 {
		return 0, false
	}

	percent := int(elapsed / pp.totalDuration * 100)
	if percent > 99 {
		percent = 99
	}
	if percent < 0 {
		percent = 0
	}

	return percent, true
}

// scanLinesWithCR handles both \r and \n as line delimiters. ffmpeg
// terminates stats lines with a bare carriage return.
func scanLinesWithCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	for i := 0; i < len(data); i++ {
		if data[i] == '\r' || data[i] == '\n' {
			advance = i + 1
			for advance < len(data) && (data[advance] == '\r' || data[advance] == '\n') {
				advance++
			}
			return advance, data[0:i], nil
		}
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}
