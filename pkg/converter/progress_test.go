package converter

import (
	"bufio"
	"strings"
	"testing"
)

func TestProgressParser_ParseLine(t *testing.T) {
	parser := NewProgressParser(120)

	line := "frame=  100 fps= 30 q=-1.0 size=    1024kB time=00:00:03.50 bitrate=2000.0kbits/s speed=1.0x"
	elapsed, ok := parser.ParseLine(line)
	if !ok {
		t.Fatal("expected a time= field to parse")
	}
	if elapsed != 3.5 {
		t.Errorf("expected elapsed 3.5, got %f", elapsed)
	}
}

func TestProgressParser_ParseLineHours(t *testing.T) {
	parser := NewProgressParser(7200)

	elapsed, ok := parser.ParseLine("size=N/A time=01:02:03.00 bitrate=N/A speed=1.0x")
	if !ok {
		t.Fatal("expected a time= field to parse")
	}
	if elapsed != 3723 {
		t.Errorf("expected elapsed 3723, got %f", elapsed)
	}
}

func TestProgressParser_ParseLineInvalid(t *testing.T) {
	parser := NewProgressParser(120)

	testCases := []string{
		"",
		"random text",
		"ffmpeg version 6.0",
		"Input #0, matroska,webm, from 'input.mkv':",
		"size=N/A time=N/A bitrate=N/A speed=N/A",
	}

	for _, line := range testCases {
		if _, ok := parser.ParseLine(line); ok {
			t.Errorf("expected no parse for line '%s'", line)
		}
	}
}

func TestProgressParser_Percentage(t *testing.T) {
	parser := NewProgressParser(200)

	testCases := []struct {
		elapsed float64
		want    int
	}{
		{0, 0},
		{100, 50},
		{199, 99},
		{200, 99},
		{500, 99},
		{-5, 0},
	}

	for _, tc := range testCases {
		got, ok := parser.Percentage(tc.elapsed)
		if !ok {
			t.Fatalf("Percentage(%f): expected ok", tc.elapsed)
		}
		if got != tc.want {
			t.Errorf("Percentage(%f): expected %d, got %d", tc.elapsed, tc.want, got)
		}
	}
}

func TestProgressParser_PercentageUnknownDuration(t *testing.T) {
	parser := NewProgressParser(0)

	if _, ok := parser.Percentage(30); ok {
		t.Error("expected no percentage when total duration is unknown")
	}
}

func TestScanLinesWithCR(t *testing.T) {
	input := "first\rsecond\nthird\r\nfourth"
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Split(scanLinesWithCR)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanner error: %v", err)
	}

	expected := []string{"first", "second", "third", "fourth"}
	if len(lines) != len(expected) {
		t.Fatalf("expected %d lines, got %d: %v", len(expected), len(lines), lines)
	}
	for i, want := range expected {
		if lines[i] != want {
			t.Errorf("line %d: expected %q, got %q", i, want, lines[i])
		}
	}
}

func TestScanLinesWithCR_StatsStream(t *testing.T) {
	input := "frame=1 time=00:00:01.00 speed=10x\rframe=2 time=00:00:02.00 speed=10x\rdone\n"
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Split(scanLinesWithCR)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "time=00:00:01.00") {
		t.Errorf("unexpected first line: %q", lines[0])
	}
	if lines[2] != "done" {
		t.Errorf("expected trailing line 'done', got %q", lines[2])
	}
}
