package registry

import (
	"context"
	"fmt"
	"strings"
)

// Settings keys.
const (
	KeyAPIKey    = "openrouter_api_key"
	KeyOCRModel  = "ocr_model_id"
	KeyTextModel = "text_model_id"
)

// MaskedValue is what GetSettings returns in place of a configured API
// key. A submitted value containing a mask rune is never persisted, so a
// round-tripped settings form cannot clobber the real key.
const MaskedValue = "••••••••••••••••"

// Settings is a snapshot of the runtime configuration. Taken once per
// conversion attempt; concurrent updates affect later attempts only.
type Settings struct {
	APIKey    string
	OCRModel  string
	TextModel string
}

const (
	defaultOCRModel  = "openai/gpt-4o-mini"
	defaultTextModel = "mistralai/mistral-large-2411"
)

func (s *Store) seedSettings() error {
	_, err := s.DB.Exec(`
		INSERT OR IGNORE INTO settings (key, value) VALUES
		(?, ''), (?, ?), (?, ?)`,
		KeyAPIKey, KeyOCRModel, defaultOCRModel, KeyTextModel, defaultTextModel)
	if err != nil {
		return fmt.Errorf("registry: seed settings: %w", err)
	}
	return nil
}

// GetSettings returns the raw settings map with no masking applied.
// HTTP boundaries must use GetSettingsMasked instead.
func (s *Store) GetSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("registry: get settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// GetSettingsMasked returns the settings map with the API key replaced
// by MaskedValue when one is configured.
func (s *Store) GetSettingsMasked(ctx context.Context) (map[string]string, error) {
	m, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if m[KeyAPIKey] != "" {
		m[KeyAPIKey] = MaskedValue
	}
	return m, nil
}

// Snapshot reads the settings once and returns a typed snapshot for a
// conversion attempt.
func (s *Store) Snapshot(ctx context.Context) (Settings, error) {
	m, err := s.GetSettings(ctx)
	if err != nil {
		return Settings{}, err
	}
	snap := Settings{
		APIKey:    m[KeyAPIKey],
		OCRModel:  m[KeyOCRModel],
		TextModel: m[KeyTextModel],
	}
	if snap.OCRModel == "" {
		snap.OCRModel = defaultOCRModel
	}
	if snap.TextModel == "" {
		snap.TextModel = defaultTextModel
	}
	return snap, nil
}

// UpdateSettings applies a partial update. Empty values and masked API
// key placeholders are skipped, so partial form submissions only
// overwrite what the user actually changed.
func (s *Store) UpdateSettings(ctx context.Context, updates map[string]string) error {
	for k, v := range updates {
		if v == "" {
			continue
		}
		if k == KeyAPIKey && strings.Contains(v, "•") {
			continue
		}
		if _, err := s.DB.ExecContext(ctx, `
			INSERT INTO settings (key, value) VALUES (?,?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v); err != nil {
			return fmt.Errorf("registry: update setting %s: %w", k, err)
		}
	}
	return nil
}
