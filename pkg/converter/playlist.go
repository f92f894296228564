package converter

import (
	"os"
	"path/filepath"
)

// MasterPlaylistName is the top-level manifest players request first
const MasterPlaylistName = "master.m3u8"

// masterPlaylist is the fixed-bandwidth manifest referencing ffmpeg's
// media playlist and the WebVTT subtitle rendition
const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=4500000,SUBTITLES="subs"
playlist.m3u8
#EXT-X-MEDIA:TYPE=SUBTITLES,GROUP-ID="subs",NAME="default",DEFAULT=YES,AUTOSELECT=YES,URI="playlist_vtt.m3u8"
`

// bootstrapVTT seeds the first subtitle segment so players that request it
// before ffmpeg has produced real cues get a valid WebVTT document
const bootstrapVTT = `WEBVTT

00:00.000 --> 00:05.000
Streaming...
`

// WritePlaylists synthesizes the master playlist and the bootstrap
// subtitle segment in the output directory
func WritePlaylists(outputDir string) error {
	masterPath := filepath.Join(outputDir, MasterPlaylistName)
	if err := os.WriteFile(masterPath, []byte(masterPlaylist), 0644); err != nil {
		return err
	}

	vttPath := filepath.Join(outputDir, "playlist0.vtt")
	return os.WriteFile(vttPath, []byte(bootstrapVTT), 0644)
}
