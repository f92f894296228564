package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/vddownco/video-downloader-hls/pkg/schemas"
)

// writeStubFFmpeg writes a shell script that stands in for ffmpeg
func writeStubFFmpeg(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub script requires a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write stub: %v", err)
	}
	return path
}

func writeStubInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.mkv")
	if err := os.WriteFile(path, []byte("fake media"), 0644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}
	return path
}

func TestConvertSuccess(t *testing.T) {
	script := "#!/bin/sh\n" +
		"printf 'frame=1 fps=0 q=-1.0 size=N/A time=00:00:05.00 bitrate=N/A speed=10x\\r' >&2\n" +
		"printf 'frame=2 fps=0 q=-1.0 size=N/A time=00:00:10.00 bitrate=N/A speed=10x\\r' >&2\n" +
		"exit 0\n"
	stub := writeStubFFmpeg(t, script)

	inputPath := writeStubInput(t)
	outputDir := filepath.Join(t.TempDir(), "out")

	var percents []int
	onProgress := func(percent int) {
		percents = append(percents, percent)
	}

	c := NewConverter(WithFFmpegPath(stub))
	err := c.Convert(context.Background(), Request{
		InputPath: inputPath,
		OutputDir: outputDir,
		Duration:  20,
		Selection: schemas.StreamSelection{Video: []int{0}},
		Counts:    schemas.StreamCounts{Video: 1},
	}, onProgress)
	if err != nil {
		t.Fatalf("Convert() failed: %v", err)
	}

	if len(percents) != 2 || percents[0] != 25 || percents[1] != 50 {
		t.Errorf("expected progress [25 50], got %v", percents)
	}

	// The consumed source is removed on success
	if _, statErr := os.Stat(inputPath); !os.IsNotExist(statErr) {
		t.Error("expected source file to be removed")
	}

	master, err := os.ReadFile(filepath.Join(outputDir, "master.m3u8"))
	if err != nil {
		t.Fatalf("master playlist missing: %v", err)
	}
	wantMaster := "#EXTM3U\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=4500000,SUBTITLES=\"subs\"\n" +
		"playlist.m3u8\n" +
		"#EXT-X-MEDIA:TYPE=SUBTITLES,GROUP-ID=\"subs\",NAME=\"default\",DEFAULT=YES,AUTOSELECT=YES,URI=\"playlist_vtt.m3u8\"\n"
	if string(master) != wantMaster {
		t.Errorf("unexpected master playlist:\n%s", master)
	}

	vtt, err := os.ReadFile(filepath.Join(outputDir, "playlist0.vtt"))
	if err != nil {
		t.Fatalf("bootstrap vtt missing: %v", err)
	}
	wantVTT := "WEBVTT\n\n00:00.000 --> 00:05.000\nStreaming...\n"
	if string(vtt) != wantVTT {
		t.Errorf("unexpected bootstrap vtt:\n%s", vtt)
	}
}

func TestConvertFailure(t *testing.T) {
	script := "#!/bin/sh\n" +
		"echo 'Stream map 0:s:0 matches no streams.' >&2\n" +
		"echo 'Error opening output file.' >&2\n" +
		"exit 3\n"
	stub := writeStubFFmpeg(t, script)

	inputPath := writeStubInput(t)
	outputDir := filepath.Join(t.TempDir(), "out")

	c := NewConverter(WithFFmpegPath(stub))
	err := c.Convert(context.Background(), Request{
		InputPath: inputPath,
		OutputDir: outputDir,
		Duration:  20,
	}, nil)
	if err == nil {
		t.Fatal("expected conversion to fail")
	}

	var procErr *ProcessError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected *ProcessError, got %T: %v", err, err)
	}
	if procErr.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", procErr.ExitCode)
	}
	if !strings.Contains(procErr.Stderr, "matches no streams") {
		t.Errorf("expected stderr tail in error, got %q", procErr.Stderr)
	}

	// The source survives a failed run
	if _, statErr := os.Stat(inputPath); statErr != nil {
		t.Error("expected source file to survive failure")
	}

	if _, statErr := os.Stat(filepath.Join(outputDir, "master.m3u8")); !os.IsNotExist(statErr) {
		t.Error("expected no master playlist after failure")
	}
}

func TestConvertUnknownDurationEmitsNoPercentages(t *testing.T) {
	script := "#!/bin/sh\n" +
		"printf 'frame=1 fps=0 q=-1.0 size=N/A time=00:00:05.00 bitrate=N/A speed=10x\\r' >&2\n" +
		"exit 0\n"
	stub := writeStubFFmpeg(t, script)

	inputPath := writeStubInput(t)

	var percents []int
	onProgress := func(percent int) {
		percents = append(percents, percent)
	}

	c := NewConverter(WithFFmpegPath(stub))
	err := c.Convert(context.Background(), Request{
		InputPath: inputPath,
		OutputDir: filepath.Join(t.TempDir(), "out"),
		Duration:  0,
	}, onProgress)
	if err != nil {
		t.Fatalf("Convert() failed: %v", err)
	}

	if len(percents) != 0 {
		t.Errorf("expected no percentages with unknown duration, got %v", percents)
	}
}

func TestConvertPassesBuiltArgs(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args.txt")
	script := "#!/bin/sh\n" +
		fmt.Sprintf("printf '%%s\\n' \"$@\" > %s\n", argsFile) +
		"exit 0\n"
	stub := writeStubFFmpeg(t, script)

	inputPath := writeStubInput(t)
	outputDir := filepath.Join(t.TempDir(), "out")

	c := NewConverter(WithFFmpegPath(stub))
	err := c.Convert(context.Background(), Request{
		InputPath: inputPath,
		OutputDir: outputDir,
		Duration:  20,
		Selection: schemas.StreamSelection{Video: []int{0}, Audio: []int{1}},
		Counts:    schemas.StreamCounts{Video: 1, Audio: 1},
	}, nil)
	if err != nil {
		t.Fatalf("Convert() failed: %v", err)
	}

	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("args file missing: %v", err)
	}
	args := strings.Split(strings.TrimSpace(string(raw)), "\n")

	if !hasArgPair(args, "-map", "0:v:0") || !hasArgPair(args, "-map", "0:a:0") {
		t.Errorf("expected stream maps in args: %v", args)
	}
	if args[len(args)-1] != filepath.Join(outputDir, "playlist.m3u8") {
		t.Errorf("expected playlist path as last arg, got %s", args[len(args)-1])
	}
}

func TestConvertMissingFFmpeg(t *testing.T) {
	c := &Converter{ffmpegPath: ""}
	err := c.Convert(context.Background(), Request{
		InputPath: "in.mkv",
		OutputDir: filepath.Join(t.TempDir(), "out"),
	}, nil)
	if err == nil {
		t.Error("expected error when ffmpeg is missing")
	}
}
