package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"dymgr/internal/client"
	"dymgr/internal/config"
	"dymgr/internal/logging"
	"dymgr/internal/navigation"
	"dymgr/internal/services"
)

const (
	annotationSkipConfig = "skipConfigLoad"
	annotationRoute      = "route"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	clientMu sync.Mutex
	client   *client.Client
	logger   *slog.Logger
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// ensureClient opens the client runtime once per invocation.
func (c *commandContext) ensureClient(ctx context.Context) (*client.Client, error) {
	c.clientMu.Lock()
	defer c.clientMu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	opened, err := client.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.client = opened
	c.logger = logger
	return opened, nil
}

func (c *commandContext) withClient(cmd *cobra.Command, fn func(context.Context, *client.Client) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithOperation(ctx, operationName(cmd))
	cl, err := c.ensureClient(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, cl)
}

func (c *commandContext) close() error {
	c.clientMu.Lock()
	defer c.clientMu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// guard blocks commands bound to a protected route when no credential is
// persisted. It mirrors a redirect to the login route.
func (c *commandContext) guard(cmd *cobra.Command) error {
	route := routeFor(cmd)
	if route == "" {
		return nil
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cl, err := c.ensureClient(ctx)
	if err != nil {
		return err
	}
	decision := cl.Guard.Resolve(route)
	if decision.Redirected && decision.Target == navigation.LoginPath {
		return errNotLoggedIn
	}
	return nil
}

var errNotLoggedIn = errors.New("not logged in; run `dymgr login <username>` first")

// operationName turns "dymgr videos list" into "videos.list".
func operationName(cmd *cobra.Command) string {
	parts := strings.Fields(cmd.CommandPath())
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}

func routeFor(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		if route := c.Annotations[annotationRoute]; route != "" {
			return route
		}
	}
	return ""
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations[annotationSkipConfig] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
