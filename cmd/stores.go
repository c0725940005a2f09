// cmd/stores.go
package cmd

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scrolllab/internal/config"
	"github.com/xkilldash9x/scrolllab/internal/observability"
	"github.com/xkilldash9x/scrolllab/internal/store"
)

// storeProvider opens the preference store for a command.
type storeProvider interface {
	Create(ctx context.Context, cfg config.Interface) (*store.Preferences, func(), error)
}

type defaultStoreProvider struct{}

// NewStoreProvider returns the provider backed by store.Open.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (*store.Preferences, func(), error) {
	logger := observability.GetLogger()
	sc := cfg.Store()
	kv, closeFn, err := store.Open(ctx, store.Options{
		Type:        sc.Type,
		Path:        sc.Path,
		DatabaseURL: sc.DatabaseURL,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Preference store opened.", zap.String("type", sc.Type))
	return store.NewPreferences(kv, logger), closeFn, nil
}
