package ffmpeg

import (
	"strconv"
	"strings"
)

// CaptureOptions describes one screen capture invocation.
type CaptureOptions struct {
	Geometry    string
	Resolution  string
	FrameRate   int
	InputFormat string
	Encoder     string
	Quality     int
	Preset      string

	Audio            bool
	AudioInputFormat string
	AudioDevice      string
	AudioCodec       string

	Output string
}

// CaptureArgs returns the argument vector for a screen capture. Audio input
// and codec flags are placed before the output path.
func CaptureArgs(opts CaptureOptions) []string {
	args := []string{
		"-nostdin",
		"-video_size", opts.Resolution,
		"-framerate", strconv.Itoa(opts.FrameRate),
		"-f", orDefault(opts.InputFormat, "x11grab"),
		"-i", opts.Geometry,
	}
	if opts.Audio {
		args = append(args,
			"-f", orDefault(opts.AudioInputFormat, "pulse"),
			"-i", orDefault(opts.AudioDevice, "default"),
		)
	}
	args = append(args,
		"-c:v", opts.Encoder,
		"-crf", strconv.Itoa(opts.Quality),
		"-preset", orDefault(opts.Preset, "fast"),
	)
	if opts.Audio {
		args = append(args, "-c:a", orDefault(opts.AudioCodec, "aac"))
	}
	return append(args, opts.Output)
}

// RemuxArgs returns the argument vector for a stream-copy container change.
func RemuxArgs(input, output string) []string {
	return []string{"-nostdin", "-y", "-i", input, "-c", "copy", output}
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
