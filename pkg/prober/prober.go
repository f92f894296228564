// Package prober provides media file probing using ffprobe
package prober

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/vddownco/video-downloader-hls/pkg/schemas"
)

// DefaultTimeout bounds a single ffprobe invocation
const DefaultTimeout = 30 * time.Second

var (
	// ErrFFprobeNotFound is returned when no ffprobe binary could be located
	ErrFFprobeNotFound = errors.New("ffprobe not found in PATH")

	// ErrTimeout is returned when ffprobe exceeds the probe timeout
	ErrTimeout = errors.New("ffprobe timed out")
)

// Result is the outcome of probing a media file
type Result struct {
	Streams *schemas.StreamSet

	// Duration is the container duration in seconds, 0 when unknown
	Duration float64
}

// Prober probes media files using ffprobe
type Prober struct {
	ffprobePath string
	timeout     time.Duration
}

// ProberOption is a functional option for Prober
type ProberOption func(*Prober)

// WithFFprobePath sets a custom ffprobe binary path
func WithFFprobePath(path string) ProberOption {
	return func(p *Prober) {
		p.ffprobePath = path
	}
}

// WithTimeout overrides the per-probe timeout
func WithTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewProber creates a new Prober instance
func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		ffprobePath: findFFprobe(),
		timeout:     DefaultTimeout,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Probe probes a media file and returns its stream descriptors grouped by
// kind. A probe that exceeds the timeout fails with ErrTimeout, which is
// distinct from a non-zero ffprobe exit.
func (p *Prober) Probe(ctx context.Context, filePath string) (*Result, error) {
	if p.ffprobePath == "" {
		return nil, ErrFFprobeNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// Build ffprobe command
	args := []string{
		"-v", "quiet", // Suppress logs
		"-print_format", "json", // Output JSON
		"-show_format",  // Show format info
		"-show_streams", // Show stream info
		filePath,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)

	// Execute command
	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, p.timeout)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("ffprobe failed: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("ffprobe execution error: %w", err)
	}

	// Parse output
	return parseFFprobeOutput(output)
}

// findFFprobe locates ffprobe in PATH
func findFFprobe() string {
	// Try common paths
	candidates := []string{
		"ffprobe",                   // In PATH
		"/usr/local/bin/ffprobe",    // Homebrew on macOS
		"/opt/homebrew/bin/ffprobe", // Apple Silicon Homebrew
		"/usr/bin/ffprobe",          // Linux
	}

	for _, path := range candidates {
		if _, err := exec.LookPath(path); err == nil {
			return path
		}
	}

	return ""
}

// ffprobeOutput represents the raw JSON output from ffprobe
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type ffprobeStream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`

	// Video fields
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`

	// Audio fields
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`

	// Common fields
	BitRate     string            `json:"bit_rate"`
	Disposition map[string]int    `json:"disposition"`
	Tags        map[string]string `json:"tags"`
}

// parseFFprobeOutput parses ffprobe JSON output into a probe Result,
// preserving the container's stream order within each kind
func parseFFprobeOutput(data []byte) (*Result, error) {
	var output ffprobeOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	set := &schemas.StreamSet{
		Video:    []schemas.VideoStream{},
		Audio:    []schemas.AudioStream{},
		Subtitle: []schemas.SubtitleStream{},
	}

	for _, stream := range output.Streams {
		switch stream.CodecType {
		case "video":
			set.Video = append(set.Video, schemas.VideoStream{
				Index:   stream.Index,
				Codec:   codecName(stream.CodecName),
				Width:   stream.Width,
				Height:  stream.Height,
				FPS:     FormatFrameRate(stream.RFrameRate),
				BitRate: FormatBitRate(stream.BitRate),
			})
		case "audio":
			set.Audio = append(set.Audio, schemas.AudioStream{
				Index:      stream.Index,
				Codec:      codecName(stream.CodecName),
				Language:   stream.Tags["language"],
				Title:      stream.Tags["title"],
				Channels:   stream.Channels,
				SampleRate: FormatSampleRate(stream.SampleRate),
				BitRate:    FormatBitRate(stream.BitRate),
			})
		case "subtitle":
			set.Subtitle = append(set.Subtitle, schemas.SubtitleStream{
				Index:           stream.Index,
				Codec:           codecName(stream.CodecName),
				Language:        stream.Tags["language"],
				Title:           stream.Tags["title"],
				Forced:          stream.Disposition["forced"] != 0,
				HearingImpaired: stream.Disposition["hearing_impaired"] != 0,
			})
		}
	}

	return &Result{
		Streams:  set,
		Duration: parseSeconds(output.Format.Duration),
	}, nil
}

// parseSeconds parses a duration string from ffprobe (seconds as float)
func parseSeconds(s string) float64 {
	if s == "" {
		return 0
	}

	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return seconds
}

// codecName falls back to "unknown" for streams without a codec name
func codecName(name string) string {
	if name == "" {
		return "unknown"
	}
	return name
}
