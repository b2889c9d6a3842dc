package client

import (
	"context"
	"errors"
	"log/slog"

	"dymgr/internal/api"
	"dymgr/internal/config"
	"dymgr/internal/credential"
	"dymgr/internal/dispatch"
	"dymgr/internal/logging"
	"dymgr/internal/navigation"
	"dymgr/internal/services"
	"dymgr/internal/session"
)

// Option customises Open.
type Option func(*options)

type options struct {
	slot       credential.Store
	httpClient dispatch.HTTPDoer
}

// WithCredentialStore replaces the configured credential backend.
func WithCredentialStore(slot credential.Store) Option {
	return func(o *options) {
		o.slot = slot
	}
}

// WithHTTPClient replaces the HTTP client used by the dispatcher.
func WithHTTPClient(doer dispatch.HTTPDoer) Option {
	return func(o *options) {
		o.httpClient = doer
	}
}

// Client is the assembled runtime shared by every command.
type Client struct {
	Config     *config.Config
	Dispatcher *dispatch.Dispatcher
	API        *api.Client
	Session    *session.Store
	Guard      *navigation.Guard

	slot   credential.Store
	logger *slog.Logger
}

// Open builds a Client from cfg, seeding the credential slot from
// DYMGR_TOKEN when it is empty and running the configured startup validation.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "client", "open", "configuration is required", nil)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger = logging.NewComponentLogger(logger, "client")

	slot := o.slot
	if slot == nil {
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "client", "open", "prepare state directory", err)
		}
		opened, err := credential.Open(cfg)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "client", "open", "open credential store", err)
		}
		slot = opened
	}

	seeded, err := credential.Seed(slot, cfg.Session.SeedToken)
	if err != nil {
		_ = slot.Close()
		return nil, services.Wrap(services.ErrConfiguration, "client", "open", "seed credential from environment", err)
	}
	if seeded {
		logger.Info("seeded credential from environment")
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithTimeout(cfg.Timeout()),
		dispatch.WithUserAgent(cfg.API.UserAgent),
		dispatch.WithLogger(logger),
	}
	if o.httpClient != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithHTTPClient(o.httpClient))
	}
	d := dispatch.New(cfg.API.BaseURL, dispatchOpts...)
	catalog := api.New(d)

	sess, err := session.New(catalog.Auth, slot,
		session.WithLogger(logger),
		session.WithValidation(session.Validation(cfg.Session.ValidateOnStart)),
	)
	if err != nil {
		_ = slot.Close()
		return nil, err
	}
	d.SetTokenSource(sess)
	if cfg.Session.LogoutOnUnauthorized {
		d.SetUnauthorizedHook(sess.Logout)
	}

	c := &Client{
		Config:     cfg,
		Dispatcher: d,
		API:        catalog,
		Session:    sess,
		Guard:      navigation.NewGuard(slot, logger),
		slot:       slot,
		logger:     logger,
	}
	if sess.Restore(ctx) {
		logger.Info("persisted session was not valid; logged out",
			logging.String("validation", cfg.Session.ValidateOnStart),
		)
	}
	return c, nil
}

// Health probes the backend origin.
func (c *Client) Health(ctx context.Context) (*api.Health, error) {
	return c.API.Health(ctx, c.Dispatcher.BaseURL())
}

// Close releases the credential slot.
func (c *Client) Close() error {
	if c == nil || c.slot == nil {
		return nil
	}
	err := c.slot.Close()
	c.slot = nil
	if err != nil {
		return errors.Join(services.ErrConfiguration, err)
	}
	return nil
}
