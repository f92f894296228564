// Package converter repackages staged media into HLS renditions by
// driving ffmpeg as a supervised child process.
package converter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/vddownco/video-downloader-hls/pkg/schemas"
)

const (
	// PlaylistName is the media playlist ffmpeg writes into the output
	// directory
	PlaylistName = "playlist.m3u8"

	// progressBuffer bounds the queue between the stderr reader and the
	// progress callback; surplus updates are dropped
	progressBuffer = 16

	// maxStderrLines bounds the diagnostic tail kept for error reporting
	maxStderrLines = 40
)

// ProcessError reports an ffmpeg run that exited non-zero, with the tail
// of its diagnostic output attached
type ProcessError struct {
	ExitCode int
	Stderr   string
}

// Error implements the error interface
func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("ffmpeg exited with code %d: %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("ffmpeg exited with code %d", e.ExitCode)
}

// Request describes one repackaging run
type Request struct {
	// InputPath is the staged source file consumed by the run
	InputPath string

	// OutputDir receives the playlist and segment files
	OutputDir string

	// Duration is the source duration in seconds; non-positive disables
	// intermediate percentage reporting
	Duration float64

	// Selection holds the caller-chosen global stream indices
	Selection schemas.StreamSelection

	// Counts holds the per-kind stream totals from analysis
	Counts schemas.StreamCounts
}

// ProgressFunc receives completion percentages in the range 0-99
type ProgressFunc func(percent int)

// Converter runs ffmpeg HLS repackaging jobs
type Converter struct {
	ffmpegPath string
}

// ConverterOption is a functional option for Converter
type ConverterOption func(*Converter)

// WithFFmpegPath sets a custom ffmpeg binary path
func WithFFmpegPath(path string) ConverterOption {
	return func(c *Converter) {
		c.ffmpegPath = path
	}
}

// NewConverter creates a new Converter instance
func NewConverter(opts ...ConverterOption) *Converter {
	c := &Converter{
		ffmpegPath: findFFmpeg(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Convert repackages the request's input into an HLS rendition under its
// output directory. On success the consumed source file is removed and the
// master playlist plus the bootstrap subtitle segment are synthesized next
// to ffmpeg's own output. A non-zero exit yields a *ProcessError carrying
// the stderr tail; partial output is left in place.
func (c *Converter) Convert(ctx context.Context, req Request, onProgress ProgressFunc) error {
	if c.ffmpegPath == "" {
		return fmt.Errorf("ffmpeg not found in PATH")
	}

	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	playlistPath := filepath.Join(req.OutputDir, PlaylistName)
	args := BuildArgs(req.InputPath, playlistPath, req.Selection, req.Counts)

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	// The reader forwards percentages into a bounded channel so a slow
	// callback can never stall the stderr pipe
	progressCh := make(chan int, progressBuffer)
	parser := NewProgressParser(req.Duration)

	var tail []string
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer close(progressCh)
		tail = c.consumeStderr(stderr, parser, progressCh)
	}()

	notifyDone := make(chan struct{})
	go func() {
		defer close(notifyDone)
		for percent := range progressCh {
			if onProgress != nil {
				onProgress(percent)
			}
		}
	}()

	// Drain stderr to EOF before reaping the process
	<-readerDone
	cmdErr := cmd.Wait()
	<-notifyDone

	if cmdErr != nil {
		exitCode := -1
		if exitErr, ok := cmdErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return &ProcessError{
			ExitCode: exitCode,
			Stderr:   strings.Join(tail, "\n"),
		}
	}

	// The source file has been consumed; a leftover is the sweeper's
	// problem, not a conversion failure
	os.Remove(req.InputPath)

	if err := WritePlaylists(req.OutputDir); err != nil {
		return fmt.Errorf("failed to write playlists: %w", err)
	}

	return nil
}

// consumeStderr reads ffmpeg stderr line by line, forwarding parsed
// percentages and retaining a bounded tail of diagnostic lines
func (c *Converter) consumeStderr(reader io.Reader, parser *ProgressParser, progressCh chan<- int) []string {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLinesWithCR)

	var tail []string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if elapsed, ok := parser.ParseLine(line); ok {
			if percent, ok := parser.Percentage(elapsed); ok {
				select {
				case progressCh <- percent:
				default:
					// Channel full, drop the update
				}
			}
			continue
		}

		tail = append(tail, line)
		if len(tail) > maxStderrLines {
			tail = tail[1:]
		}
	}

	return tail
}

// findFFmpeg locates ffmpeg in PATH
func findFFmpeg() string {
	// Try common paths
	candidates := []string{
		"ffmpeg",                   // In PATH
		"/usr/local/bin/ffmpeg",    // Homebrew on macOS
		"/opt/homebrew/bin/ffmpeg", // Apple Silicon Homebrew
		"/usr/bin/ffmpeg",          // Linux
	}

	for _, path := range candidates {
		if _, err := exec.LookPath(path); err == nil {
			return path
		}
	}

	return ""
}
