package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/leofalp/agentspace/core/client"
	"github.com/leofalp/agentspace/core/config"
	"github.com/leofalp/agentspace/core/render"
	"github.com/leofalp/agentspace/providers/ai/backend"
	"github.com/leofalp/agentspace/providers/observability/logrusobs"
)

// app carries what every subcommand needs once the root pre-run resolved
// the configuration.
type app struct {
	envFile       string
	baseURL       string
	providersFile string
	logLevel      string
	logFormat     string
	idleTimeout   time.Duration
	noColor       bool

	cfg      config.Config
	observer *logrusobs.Observer
	backend  *backend.Client
	// provider wraps backend in the configured middleware chain. Chat and
	// stream calls go through it.
	provider *client.Client
	renderer *render.Renderer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:          "agentspace",
		Short:        "Ask several AI providers at once",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", config.DefaultEnvFile, "dotenv file to load before reading the environment")
	flags.StringVar(&a.baseURL, "base-url", "", "backend base URL (overrides "+config.EnvBaseURL+")")
	flags.StringVar(&a.providersFile, "providers-file", "", "YAML provider table (overrides "+config.EnvProvidersFile+")")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	flags.DurationVar(&a.idleTimeout, "idle-timeout", 0, "abort a stream silent for this long (0 disables)")
	flags.BoolVar(&a.noColor, "no-color", false, "disable coloured output")

	rootCmd.AddCommand(
		newAskCmd(a),
		newChatCmd(a),
		newServeCmd(a),
		newProvidersCmd(a),
		newFeedbackCmd(a),
	)
	return rootCmd
}

// setup loads the configuration, applies flag overrides and builds the
// shared observer, clients and renderer.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = a.baseURL
	}
	if flags.Changed("providers-file") {
		cfg.ProvidersFile = a.providersFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	if flags.Changed("idle-timeout") {
		cfg.IdleTimeout = a.idleTimeout
	}
	a.cfg = cfg

	a.observer = logrusobs.New(append(cfg.ObserverOptions(), logrusobs.WithOutput(cmd.ErrOrStderr()))...)
	a.backend, err = cfg.NewClient(a.observer)
	if err != nil {
		return err
	}
	a.provider, err = cfg.NewProvider(a.backend, a.observer)
	if err != nil {
		return err
	}

	var renderOpts []render.Option
	if a.noColor {
		renderOpts = append(renderOpts, render.WithColor(false))
	}
	a.renderer = render.New(renderOpts...)
	return nil
}
