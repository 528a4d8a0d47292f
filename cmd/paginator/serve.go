package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	channeldiscord "github.com/StormDevelopmentSoftware/paginator/internal/channels/discord"
	"github.com/StormDevelopmentSoftware/paginator/internal/config"
	"github.com/StormDevelopmentSoftware/paginator/internal/observability"
	"github.com/StormDevelopmentSoftware/paginator/internal/paginator"
)

// buildServeCmd creates the "serve" command that runs the bot.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pagination bot",
		Long: `Run the pagination bot with the configured Discord connection.

The bot will:
1. Load configuration from the specified file (or paginator.yaml)
2. Connect to the Discord gateway
3. Start the pagination event collector
4. Serve Prometheus metrics when enabled

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with default config
  paginator serve

  # Start with custom config and debug logging
  paginator serve --config /etc/paginator/production.yaml --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "paginator.yaml",
		"Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false,
		"Enable debug logging (verbose output)")

	return cmd
}

func runServe(parent context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	logger := observability.NewLogger(cfg.Logging)
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dg, err := discordgo.New("Bot " + cfg.Discord.BotToken)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsDirectMessageReactions |
		discordgo.IntentMessageContent

	if err := dg.Open(); err != nil {
		return fmt.Errorf("connect to discord: %w", err)
	}
	defer dg.Close()
	logger.Info("connected to discord")

	collector, err := channeldiscord.NewCollector(dg, channeldiscord.Config{
		RateLimit:             cfg.Discord.RateLimit,
		DefaultTimeout:        cfg.Paginator.Timeout,
		DefaultBehavior:       cfg.Paginator.Behavior,
		DefaultDeletionPolicy: cfg.Paginator.DeletionPolicy,
		Logger:                logger,
		Metrics:               metrics,
	})
	if err != nil {
		return err
	}
	if err := collector.Start(ctx); err != nil {
		return err
	}

	// Demo command: "!paginate" spawns a sample reaction-driven session,
	// "!paginate buttons" a button-driven one.
	dg.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}
		fields := strings.Fields(m.Content)
		if len(fields) == 0 || fields[0] != "!paginate" {
			return
		}

		req := channeldiscord.SpawnRequest{
			Pages: demoPages(),
			Owner: m.Author.ID,
		}
		if len(fields) > 1 && fields[1] == "buttons" {
			req.Bindings = paginator.NewButtonBindings()
		}

		if _, err := collector.Spawn(ctx, m.ChannelID, req); err != nil {
			logger.Error("failed to spawn demo session", "channel_id", m.ChannelID, "error", err)
		}
	})

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			logger.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	logger.Info("paginator running", "version", version)
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := collector.Stop(shutdownCtx); err != nil {
		logger.Warn("collector shutdown incomplete", "error", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}

	return nil
}

// demoPages builds the sample content used by the !paginate command.
func demoPages() []paginator.Page {
	colors := []int{0x5865F2, 0x57F287, 0xFEE75C, 0xEB459E}
	pages := make([]paginator.Page, 0, len(colors))
	for i, color := range colors {
		pages = append(pages, paginator.Page{
			Embed: &discordgo.MessageEmbed{
				Title:       fmt.Sprintf("Page %d of %d", i+1, len(colors)),
				Description: "Use the controls to navigate. The square stops the session.",
				Color:       color,
			},
		})
	}
	return pages
}
