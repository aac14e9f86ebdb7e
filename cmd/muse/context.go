package main

import (
	"errors"
	"os"
	"strings"
	"sync"

	"muse/internal/client"
	"muse/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string
	actorFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag, actorFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
		actorFlag:  actorFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) apiAddr() string {
	if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
		return strings.TrimSpace(*c.apiFlag)
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return cfg.Paths.APIBind
	}
	return "127.0.0.1:7680"
}

func (c *commandContext) actorID() string {
	if c.actorFlag != nil && strings.TrimSpace(*c.actorFlag) != "" {
		return strings.TrimSpace(*c.actorFlag)
	}
	return strings.TrimSpace(os.Getenv("MUSE_ACTOR"))
}

func (c *commandContext) apiToken() string {
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return cfg.Paths.APIToken
	}
	return ""
}

// withClient dials the daemon API; actor-bound commands should call
// requireActor first.
func (c *commandContext) withClient(fn func(*client.Client) error) error {
	api, err := client.New(c.apiAddr(), c.apiToken(), c.actorID())
	if err != nil {
		return err
	}
	if err := fn(api); err != nil {
		if client.IsDaemonUnavailable(err) {
			return errors.New("muse daemon is not reachable at " + c.apiAddr() + "; start it with `mused`")
		}
		return err
	}
	return nil
}

func (c *commandContext) requireActor() error {
	if c.actorID() == "" {
		return errors.New("acting user required: pass --actor or set MUSE_ACTOR")
	}
	return nil
}
