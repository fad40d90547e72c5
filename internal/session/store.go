package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Persisted key names.
const (
	KeyResolution  = "resolution"
	KeyFrameRate   = "framerate"
	KeyCodec       = "codec"
	KeyQuality     = "crf"
	KeyAudio       = "audio"
	KeyRemux       = "remux"
	KeyMonitor     = "monitor"
	KeyDestination = "save_location"
)

// Keys lists every persisted key.
var Keys = []string{
	KeyResolution, KeyFrameRate, KeyCodec, KeyQuality,
	KeyAudio, KeyRemux, KeyMonitor, KeyDestination,
}

var keyAliases = map[string]string{
	"fps":         KeyFrameRate,
	"quality":     KeyQuality,
	"destination": KeyDestination,
	"folder":      KeyDestination,
}

func normalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, "-", "_")
	if alias, ok := keyAliases[k]; ok {
		return alias
	}
	return k
}

// Store is the key-value persistence the session config is kept in.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// Load reads the persisted config. Each field falls back to its default
// when missing or invalid. A monitor index outside [0, monitorCount) is
// reset to 0.
func Load(ctx context.Context, store Store, monitorCount int) (Config, error) {
	cfg := Defaults()
	raw := make(map[string]string, len(Keys))
	for _, key := range Keys {
		value, ok, err := store.Get(ctx, key)
		if err != nil {
			return Defaults(), fmt.Errorf("load session config: %w", err)
		}
		if ok {
			raw[key] = value
		}
	}

	if v, ok := raw[KeyResolution]; ok {
		if r, err := ParseResolution(v); err == nil {
			cfg.Resolution = r
		}
	}
	if v, ok := raw[KeyFrameRate]; ok {
		if fr, err := ParseFrameRate(v); err == nil {
			cfg.FrameRate = fr
		}
	}
	if v, ok := raw[KeyCodec]; ok {
		if c, err := ParseCodec(v); err == nil {
			cfg.Codec = c
		}
	}
	if v, ok := raw[KeyQuality]; ok {
		if q, err := parseQuality(v); err == nil {
			cfg.Quality = q
		}
	}
	if v, ok := raw[KeyAudio]; ok {
		if b, err := parseBool(v); err == nil {
			cfg.Audio = b
		}
	}
	if v, ok := raw[KeyRemux]; ok {
		if b, err := parseBool(v); err == nil {
			cfg.Remux = b
		}
	}
	if v, ok := raw[KeyMonitor]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.MonitorIndex = n
		}
	}
	cfg.MonitorIndex = ClampMonitor(cfg.MonitorIndex, monitorCount)
	if v, ok := raw[KeyDestination]; ok {
		cfg.Destination = strings.TrimSpace(v)
	}
	return cfg, nil
}

// ClampMonitor returns index when it selects one of count monitors and 0
// otherwise. The catalog always holds at least one entry, so a count below
// one is treated as one.
func ClampMonitor(index, count int) int {
	if count < 1 {
		count = 1
	}
	if index < 0 || index >= count {
		return 0
	}
	return index
}

// Save writes every key. Invalid configs are rejected before touching the store.
func Save(ctx context.Context, store Store, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("save session config: %w", err)
	}
	if err := store.SetMany(ctx, cfg.Values()); err != nil {
		return fmt.Errorf("save session config: %w", err)
	}
	return nil
}

// Reset clears every persisted key and returns the defaults.
func Reset(ctx context.Context, store Store) (Config, error) {
	if err := store.Delete(ctx, Keys...); err != nil {
		return Defaults(), fmt.Errorf("reset session config: %w", err)
	}
	return Defaults(), nil
}

// Values renders the config in its persisted string form.
func (c Config) Values() map[string]string {
	return map[string]string{
		KeyResolution:  string(c.Resolution),
		KeyFrameRate:   strconv.Itoa(int(c.FrameRate)),
		KeyCodec:       c.Codec.Encoder(),
		KeyQuality:     strconv.Itoa(c.Quality),
		KeyAudio:       strconv.FormatBool(c.Audio),
		KeyRemux:       strconv.FormatBool(c.Remux),
		KeyMonitor:     strconv.Itoa(c.MonitorIndex),
		KeyDestination: c.Destination,
	}
}
