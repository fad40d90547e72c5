package session

import (
	"fmt"
	"strconv"
	"strings"

	"screenrec/internal/failure"
)

// ErrInvalid marks a session value outside its allowed set.
var ErrInvalid = failure.New(failure.KindConfiguration, "invalid session config")

// Resolution is a capture frame size.
type Resolution string

const (
	Resolution1080p Resolution = "1920x1080"
	Resolution720p  Resolution = "1280x720"
	Resolution480p  Resolution = "640x480"
)

// Resolutions lists the supported frame sizes in menu order.
var Resolutions = []Resolution{Resolution1080p, Resolution720p, Resolution480p}

// ParseResolution validates a WxH string.
func ParseResolution(value string) (Resolution, error) {
	trimmed := Resolution(strings.ToLower(strings.TrimSpace(value)))
	for _, r := range Resolutions {
		if r == trimmed {
			return r, nil
		}
	}
	return "", fmt.Errorf("resolution %q not supported (want one of %s)", value, joinResolutions())
}

func joinResolutions() string {
	parts := make([]string, len(Resolutions))
	for i, r := range Resolutions {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

// FrameRate is a capture rate in frames per second.
type FrameRate int

// FrameRates lists the supported rates in menu order.
var FrameRates = []FrameRate{30, 60, 24}

// ParseFrameRate validates a frame rate.
func ParseFrameRate(value string) (FrameRate, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("frame rate %q is not a number", value)
	}
	for _, fr := range FrameRates {
		if int(fr) == n {
			return fr, nil
		}
	}
	return 0, fmt.Errorf("frame rate %d not supported (want 30, 60, or 24)", n)
}

// Codec is the video compression format.
type Codec string

const (
	CodecH264 Codec = "h264"
	CodecH265 Codec = "h265"
)

// Codecs lists the supported codecs in display order.
var Codecs = []Codec{CodecH264, CodecH265}

// Encoder returns the ffmpeg encoder name.
func (c Codec) Encoder() string {
	if c == CodecH265 {
		return "libx265"
	}
	return "libx264"
}

// ParseCodec accepts either the codec name or the encoder name.
func ParseCodec(value string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "h264", "x264", "libx264", "avc":
		return CodecH264, nil
	case "h265", "x265", "libx265", "hevc":
		return CodecH265, nil
	default:
		return "", fmt.Errorf("codec %q not supported (want h264 or h265)", value)
	}
}

const (
	MinQuality = 0
	MaxQuality = 51
)

// Config is the set of user-chosen capture parameters.
type Config struct {
	Resolution   Resolution `json:"resolution"`
	FrameRate    FrameRate  `json:"framerate"`
	Codec        Codec      `json:"codec"`
	Quality      int        `json:"quality"`
	Audio        bool       `json:"audio"`
	Remux        bool       `json:"remux"`
	MonitorIndex int        `json:"monitor"`
	Destination  string     `json:"destination"`
}

// Defaults returns the out-of-the-box parameters.
func Defaults() Config {
	return Config{
		Resolution: Resolution1080p,
		FrameRate:  30,
		Codec:      CodecH264,
		Quality:    23,
		Audio:      true,
	}
}

// Validate reports the first field outside its allowed range.
func (c Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func (c Config) validate() error {
	if _, err := ParseResolution(string(c.Resolution)); err != nil {
		return err
	}
	if _, err := ParseFrameRate(strconv.Itoa(int(c.FrameRate))); err != nil {
		return err
	}
	if _, err := ParseCodec(string(c.Codec)); err != nil {
		return err
	}
	if c.Quality < MinQuality || c.Quality > MaxQuality {
		return fmt.Errorf("quality %d out of range %d-%d", c.Quality, MinQuality, MaxQuality)
	}
	if c.MonitorIndex < 0 {
		return fmt.Errorf("monitor index %d must not be negative", c.MonitorIndex)
	}
	return nil
}

// Set updates one field from its string form. Keys are the persisted key
// names plus a few friendly aliases.
func (c *Config) Set(key, value string) error {
	if err := c.set(key, value); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func (c *Config) set(key, value string) error {
	switch normalizeKey(key) {
	case KeyResolution:
		r, err := ParseResolution(value)
		if err != nil {
			return err
		}
		c.Resolution = r
	case KeyFrameRate:
		fr, err := ParseFrameRate(value)
		if err != nil {
			return err
		}
		c.FrameRate = fr
	case KeyCodec:
		codec, err := ParseCodec(value)
		if err != nil {
			return err
		}
		c.Codec = codec
	case KeyQuality:
		q, err := parseQuality(value)
		if err != nil {
			return err
		}
		c.Quality = q
	case KeyAudio:
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		c.Audio = b
	case KeyRemux:
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("remux: %w", err)
		}
		c.Remux = b
	case KeyMonitor:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return fmt.Errorf("monitor %q must be a non-negative index", value)
		}
		c.MonitorIndex = n
	case KeyDestination:
		c.Destination = strings.TrimSpace(value)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func parseQuality(value string) (int, error) {
	q, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("quality %q is not a number", value)
	}
	if q < MinQuality || q > MaxQuality {
		return 0, fmt.Errorf("quality %d out of range %d-%d", q, MinQuality, MaxQuality)
	}
	return q, nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%q is not a boolean", value)
	}
}
