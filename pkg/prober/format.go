package prober

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatFrameRate renders an ffprobe frame-rate ratio (e.g. "30000/1001")
// as a two-decimal string. A zero denominator means the rate is unknown
// and yields the empty string, never a division error.
func FormatFrameRate(ratio string) string {
	if ratio == "" {
		return ""
	}

	parts := strings.Split(ratio, "/")
	if len(parts) != 2 {
		return ""
	}

	num, err1 := strconv.Atoi(parts[0])
	den, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || den == 0 {
		return ""
	}

	return fmt.Sprintf("%.2f", float64(num)/float64(den))
}

// FormatBitRate renders a bit rate in bits per second, using Mbps at or
// above one megabit and kbps below it. Unknown rates yield the empty string.
func FormatBitRate(bitRate string) string {
	if bitRate == "" {
		return ""
	}

	v, err := strconv.ParseInt(bitRate, 10, 64)
	if err != nil {
		return ""
	}

	if v >= 1000000 {
		return fmt.Sprintf("%.1f Mbps", float64(v)/1000000)
	}
	return fmt.Sprintf("%.0f kbps", float64(v)/1000)
}

// FormatSampleRate renders a sample rate in Hz as a one-decimal kilohertz
// label (e.g. "48.0k"). Unknown rates yield the empty string.
func FormatSampleRate(sampleRate string) string {
	if sampleRate == "" {
		return ""
	}

	v, err := strconv.Atoi(sampleRate)
	if err != nil {
		return ""
	}

	return fmt.Sprintf("%.1fk", float64(v)/1000)
}
