package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	apiclient "github.com/bnema/jules-cli/internal/adapters/api"
	cachestore "github.com/bnema/jules-cli/internal/adapters/cache/sqlite"
	statusadapter "github.com/bnema/jules-cli/internal/adapters/render/status"
	filestore "github.com/bnema/jules-cli/internal/adapters/secrets/file"
	tomlsettings "github.com/bnema/jules-cli/internal/adapters/settings/toml"
	entitystore "github.com/bnema/jules-cli/internal/adapters/store/sqlite"
	"github.com/bnema/jules-cli/internal/application"
	"github.com/bnema/jules-cli/internal/ports"
)

type app struct {
	service      *application.Service
	poller       *application.Poller
	secretStore  ports.SecretStore
	settings     tomlsettings.Settings
	settingsRepo *tomlsettings.Repository
	render      func(statusadapter.ViewData, statusadapter.RenderOptions) (string, error)
	now         func() time.Time

	entities *entitystore.Store
	cache    *cachestore.Cache
}

func wireApp() (*app, error) {
	settingsRepo, err := tomlsettings.NewRepository(viper.New())
	if err != nil {
		return nil, fmt.Errorf("wire settings repository: %w", err)
	}
	settings, err := settingsRepo.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	dataDir := settings.DataDir
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	secretStore := filestore.NewStore(filepath.Join(dataDir, "secrets"))
	apiKey, _ := secretStore.Get(context.Background(), filestore.APIKeyRef)
	if env := os.Getenv("JULES_API_KEY"); env != "" {
		apiKey = env
	}

	entities, err := entitystore.Open(filepath.Join(dataDir, "entities.db"))
	if err != nil {
		return nil, fmt.Errorf("open entity store: %w", err)
	}

	cache, err := cachestore.Open(filepath.Join(dataDir, "cache.db"), settings.Cache, ports.SystemClock{})
	if err != nil {
		_ = entities.Close()
		return nil, fmt.Errorf("open cache store: %w", err)
	}

	client := apiclient.NewClient(apiclient.Config{
		BaseURL: settings.BaseURL,
		APIKey:  apiKey,
		Debug:   os.Getenv("JULES_DEBUG") != "",
	})

	service := application.NewService(application.ServiceConfig{
		API:           client,
		SourceStore:   entities,
		SessionStore:  entities,
		ActivityStore: entities,
		Cache:         cache,
		CacheTTL:      settings.Cache.DefaultTTL,
	})

	poller := application.NewPoller(application.PollerConfig{
		Service:  service,
		Interval: settings.PollInterval,
	})

	return &app{
		service:      service,
		poller:       poller,
		secretStore:  secretStore,
		settings:     settings,
		settingsRepo: settingsRepo,
		render:       statusadapter.Render,
		now:          time.Now,
		entities:     entities,
		cache:        cache,
	}, nil
}

func (a *app) Close() error {
	var firstErr error
	if err := a.cache.Close(); err != nil {
		firstErr = err
	}
	if err := a.entities.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// sessionName accepts either a bare ID or a full resource name.
func sessionName(arg string) string {
	if strings.HasPrefix(arg, "sessions/") {
		return arg
	}
	return "sessions/" + arg
}
