package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/llehouerou/crate/internal/config"
	"github.com/llehouerou/crate/internal/errmsg"
	"github.com/llehouerou/crate/internal/logging"
)

type commandContext struct {
	configFlag *string

	once   sync.Once
	config *config.Config
	logger *slog.Logger
	err    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensure loads the configuration and builds the logger on first use.
func (c *commandContext) ensure() (*config.Config, *slog.Logger, error) {
	c.once.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.err = fmt.Errorf("%s: %w", errmsg.OpConfigLoad, err)
			return
		}
		logger, err := logging.New(cfg.LogOptions())
		if err != nil {
			c.err = fmt.Errorf("%s: %w", errmsg.OpInitialize, err)
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.logger, c.err
}
