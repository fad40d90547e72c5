package testsupport

import (
	"testing"

	"screenrec/internal/config"
	"screenrec/internal/settings"
)

// MustOpenStore opens the settings store for cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *settings.Store {
	t.Helper()

	store, err := settings.Open(cfg.SettingsPath())
	if err != nil {
		t.Fatalf("settings.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
