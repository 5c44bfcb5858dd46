// Command hcbot runs the hack.chat bot.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hcbot/hackchat"
	"github.com/hcbot/hackchat/capture"
	"github.com/hcbot/hackchat/internal/config"
	"github.com/hcbot/hackchat/internal/dispatch"
	"github.com/hcbot/hackchat/internal/logging"
)

var (
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "hcbot",
	Short: "hack.chat bot",
	Long: `hcbot joins the configured hack.chat channels, answers trigger
commands and follows invites until it receives SIGINT or SIGTERM.

Settings come from the YAML config file, then the optional .env file,
then HCBOT_* environment variables.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "Path to config file")
	rootCmd.Flags().StringVar(&envFile, "env", ".env", "Optional dotenv file with HCBOT_* overrides")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	var rec *capture.Recorder
	if cfg.Capture != "" {
		f, err := os.OpenFile(cfg.Capture, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open capture: %w", err)
		}
		defer f.Close()
		if rec, err = capture.NewRecorder(f); err != nil {
			return err
		}
		defer rec.Close()
		log.Info("capturing frames", "path", cfg.Capture)
	}

	router := dispatch.New(dispatch.Options{
		Trigger:  cfg.Trigger,
		GitHub:   cfg.GitHub,
		CanLeave: cfg.CanLeave,
		Logger:   log,
	})

	m := hackchat.NewManager(hackchat.Config{
		Endpoint:     cfg.URL,
		PingInterval: cfg.PingInterval,
		Logger:       log,
		Capture:      rec,
	}, hackchat.Identity{Nick: cfg.Name, Password: cfg.Password}, router.Handle,
		hackchat.WithJoinDelay(cfg.JoinDelay))
	router.Bind(m)

	// Failures are logged by the manager.
	go m.JoinAll(ctx, cfg.Channels)

	<-ctx.Done()
	log.Info("shutting down")
	m.Close()
	return nil
}
