package schemas

// VideoStream describes one video track found by the prober.
// Index is the stream's global index in the source container.
type VideoStream struct {
	Index   int    `json:"index"`
	Codec   string `json:"codec"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	FPS     string `json:"fps,omitempty"`
	BitRate string `json:"bitrate,omitempty"`
}

// AudioStream describes one audio track found by the prober
type AudioStream struct {
	Index      int    `json:"index"`
	Codec      string `json:"codec"`
	Language   string `json:"language,omitempty"`
	Title      string `json:"title,omitempty"`
	Channels   int    `json:"channels"`
	SampleRate string `json:"sample_rate,omitempty"`
	BitRate    string `json:"bitrate,omitempty"`
}

// SubtitleStream describes one subtitle track found by the prober
type SubtitleStream struct {
	Index           int    `json:"index"`
	Codec           string `json:"codec"`
	Language        string `json:"language,omitempty"`
	Title           string `json:"title,omitempty"`
	Forced          bool   `json:"forced"`
	HearingImpaired bool   `json:"hearing_impaired"`
}

// StreamSet groups every track of a probed media file by kind,
// preserving the container's stream order within each kind.
type StreamSet struct {
	Video    []VideoStream    `json:"video"`
	Audio    []AudioStream    `json:"audio"`
	Subtitle []SubtitleStream `json:"subtitle"`
}

// Counts returns the per-kind track totals of the set
func (s *StreamSet) Counts() StreamCounts {
	return StreamCounts{
		Video:    len(s.Video),
		Audio:    len(s.Audio),
		Subtitle: len(s.Subtitle),
	}
}

// StreamSelection lists the global stream indexes to keep, per kind
type StreamSelection struct {
	Video    []int `json:"video"`
	Audio    []int `json:"audio"`
	Subtitle []int `json:"subtitle"`
}

// Empty returns true if no stream of any kind was selected
func (s StreamSelection) Empty() bool {
	return len(s.Video) == 0 && len(s.Audio) == 0 && len(s.Subtitle) == 0
}

// StreamCounts carries the per-kind track totals of the probed source.
// The totals describe a container laid out video block first, then audio,
// then subtitle in global index order; callers are responsible for
// supplying counts that match the probed source.
type StreamCounts struct {
	Video    int `json:"video"`
	Audio    int `json:"audio"`
	Subtitle int `json:"subtitle"`
}
