package core

import (
	"time"

	"telconsole/config"
	"telconsole/internal/bindings"
	"telconsole/internal/capability"
	"telconsole/internal/metrics"
	"telconsole/util"
)

// Build assembles the console server described by cfg.
func Build(cfg *config.Config, logger *util.Logger, m *metrics.Collector, version string) (Mode, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Server{
		Address: cfg.Address(),
		Handler: &Handler{
			Capability: buildCapability(cfg, version),
			Provider:   buildProvider(cfg, version),
			Debug:      cfg.Debug,
			Logger:     logger,
			Metrics:    m,
		},
		MaxConns:    cfg.MaxConns,
		Heartbeat:   cfg.Heartbeat,
		GracePeriod: cfg.GracePeriod,
		Logger:      logger,
		Metrics:     m,
	}, nil
}

// buildCapability selects the per-connection evaluator.
func buildCapability(cfg *config.Config, version string) capability.Capability {
	if !cfg.UsesConsole() {
		return &capability.Exec{
			Program: cfg.Execute,
			Command: cfg.Command,
			Echo:    true,
		}
	}
	return &capability.Console{
		Prompt:  cfg.Prompt,
		NoColor: cfg.NoColor,
		Version: version,
	}
}

// buildProvider chains process facts, explicit binds and the bindings
// file, later sources winning, behind a TTL cache.
func buildProvider(cfg *config.Config, version string) bindings.Provider {
	var file bindings.Provider
	if cfg.BindingsFile != "" {
		file = bindings.LoadFile(cfg.BindingsFile)
	}
	return bindings.NewCached(bindings.Chain(
		bindings.ProcessInfo(version, time.Now()),
		file,
		bindings.Static(cfg.Binds),
	), cfg.BindingsTTL)
}
