// internal/store/preferences.go
package store

import (
	"context"
	"errors"
	"fmt"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scrolllab/api/schemas"
)

// GainsKey holds the user's scroll gains.
const GainsKey = "scrolllab:gains"

// ProgressKey returns the key holding study progress for a session code.
func ProgressKey(code string) string {
	return "scrolllab:part1:progress:" + code
}

// Preferences reads and writes typed values on a KV. Blobs that cannot be
// decoded are treated as absent.
type Preferences struct {
	kv  KV
	log *zap.Logger
}

// NewPreferences wraps kv.
func NewPreferences(kv KV, logger *zap.Logger) *Preferences {
	return &Preferences{kv: kv, log: logger.Named("preferences")}
}

// LoadSettings returns the saved gains, clamped, or fallback when none are usable.
func (p *Preferences) LoadSettings(ctx context.Context, fallback schemas.ScrollSettings) (schemas.ScrollSettings, error) {
	raw, err := p.kv.Get(ctx, GainsKey)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}

	// Decode over the fallback so a partial blob keeps the missing gain.
	s := fallback
	if err := json.Unmarshal(raw, &s); err != nil {
		p.log.Debug("Ignoring malformed gains blob.", zap.Error(err))
		return fallback, nil
	}
	return s.Clamped(), nil
}

// SaveSettings clamps and stores s, returning what was stored.
func (p *Preferences) SaveSettings(ctx context.Context, s schemas.ScrollSettings) (schemas.ScrollSettings, error) {
	s = s.Clamped()
	data, err := json.Marshal(s)
	if err != nil {
		return s, fmt.Errorf("failed to encode gains: %w", err)
	}
	return s, p.kv.Put(ctx, GainsKey, data)
}

// LoadProgress returns the stored progress for code. found is false when
// nothing usable is stored.
func (p *Preferences) LoadProgress(ctx context.Context, code string) (progress schemas.Progress, found bool, err error) {
	raw, err := p.kv.Get(ctx, ProgressKey(code))
	if errors.Is(err, ErrNotFound) {
		return progress, false, nil
	}
	if err != nil {
		return progress, false, err
	}
	if err := json.Unmarshal(raw, &progress); err != nil {
		p.log.Debug("Ignoring malformed progress blob.", zap.String("code", code), zap.Error(err))
		return schemas.Progress{}, false, nil
	}
	return progress, true, nil
}

// SaveProgress stores progress for code.
func (p *Preferences) SaveProgress(ctx context.Context, code string, progress schemas.Progress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	return p.kv.Put(ctx, ProgressKey(code), data)
}

// ResetSettings removes saved gains.
func (p *Preferences) ResetSettings(ctx context.Context) error {
	return p.kv.Delete(ctx, GainsKey)
}
