package converter

import (
	"fmt"

	"github.com/vddownco/video-downloader-hls/pkg/schemas"
)

// BuildArgs generates the ffmpeg argument list for repackaging the input
// file into an HLS rendition at playlistPath.
//
// Selected streams are addressed by their global ffprobe index and mapped
// to kind-relative output specifiers. The mapping assumes the container
// orders streams video block first, then audio, then subtitle; counts come
// from the analysis that produced the indices and are not re-validated
// here.
func BuildArgs(inputPath, playlistPath string, selection schemas.StreamSelection, counts schemas.StreamCounts) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-loglevel", "error",
		"-stats",
		"-i", inputPath,
	}

	if selection.Empty() {
		// No explicit selection: take all video plus audio if present
		args = append(args, "-map", "0:v", "-map", "0:a?")
	} else {
		for _, index := range selection.Video {
			args = append(args, "-map", fmt.Sprintf("0:v:%d", index))
		}
		for _, index := range selection.Audio {
			args = append(args, "-map", fmt.Sprintf("0:a:%d", index-counts.Video))
		}
		for _, index := range selection.Subtitle {
			args = append(args, "-map", fmt.Sprintf("0:s:%d", index-counts.Video-counts.Audio))
		}
	}

	args = append(args,
		"-c:v", "copy",
		"-c:a", "copy",
		"-c:s", "webvtt",
		"-start_number", "0",
		"-hls_time", "10",
		"-hls_list_size", "0",
		"-hls_flags", "delete_segments",
		"-f", "hls",
		playlistPath,
	)

	return args
}
