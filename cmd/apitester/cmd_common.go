package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/openbank/apitester/internal/auth/directlogin"
	"github.com/openbank/apitester/internal/auth/gatewaylogin"
	"github.com/openbank/apitester/internal/config"
	"github.com/openbank/apitester/internal/core/profile"
	"github.com/openbank/apitester/internal/core/registry"
	"github.com/openbank/apitester/internal/runner"
	"github.com/openbank/apitester/internal/swagger"
	"github.com/openbank/apitester/internal/transport"
)

// authFlags are the credential flags shared by serve and run.
type authFlags struct {
	username      string
	password      string
	consumerKey   string
	gatewaySecret string
}

type app struct {
	cfg      config.Config
	logger   *slog.Logger
	api      *transport.Client
	cache    *swagger.Cache
	profiles *profile.Store
	store    *registry.Store
	service  *registry.Service
	runner   *runner.Runner
}

// session authenticates against the API using whichever scheme the
// flags select: GatewayLogin when a secret is set, DirectLogin when
// credentials are set, anonymous otherwise.
func (a authFlags) session(ctx context.Context, cfg config.Config, logger *slog.Logger) (*http.Client, error) {
	switch {
	case a.gatewaySecret != "":
		gw := gatewaylogin.New(a.gatewaySecret, cfg.DefaultTimeout)
		if err := gw.Login(a.username); err != nil {
			return nil, err
		}
		return gw.Session(), nil
	case a.username != "":
		dl := directlogin.New(cfg.APIHost, cfg.DefaultTimeout, logger)
		if err := dl.Login(ctx, a.username, a.password, a.consumerKey); err != nil {
			return nil, err
		}
		return dl.Session(), nil
	}
	return nil, nil
}

func buildApp(ctx context.Context, cfgPath string, auth authFlags) (*app, error) {
	cfg := config.Load(cfgPath)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	session, err := auth.session(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	profiles, err := profile.NewStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	store, err := registry.NewStore(cfg.DBPath)
	if err != nil {
		profiles.Close()
		return nil, err
	}

	api := transport.New(session, cfg.APIRoot, logger)
	cache := swagger.NewCache(api, cfg.CacheTTL)
	service := registry.NewService(store, profiles, cache, logger)
	run := runner.New(api, service, profiles, cache, cfg.TruncateLength, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		api:      api,
		cache:    cache,
		profiles: profiles,
		store:    store,
		service:  service,
		runner:   run,
	}, nil
}

func (a *app) Close() {
	a.store.Close()
	a.profiles.Close()
}
