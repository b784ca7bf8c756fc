package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/eliseohh/grammarbot/internal/bot"
	"github.com/eliseohh/grammarbot/internal/chatconfig"
	"github.com/eliseohh/grammarbot/internal/command"
	"github.com/eliseohh/grammarbot/internal/config"
	"github.com/eliseohh/grammarbot/internal/discord"
	"github.com/eliseohh/grammarbot/internal/grammar"
	"github.com/eliseohh/grammarbot/internal/logging"
	"github.com/eliseohh/grammarbot/internal/metrics"
	"github.com/eliseohh/grammarbot/internal/review"
	"github.com/eliseohh/grammarbot/internal/store"
	"github.com/eliseohh/grammarbot/internal/telegram"
)

var (
	configPath string
	cfg        *config.Config
	logger     *zap.Logger

	checkAlgorithm int
	checkLanguage  int
	checkTolerant  bool
)

var rootCmd = &cobra.Command{
	Use:           "grammarbot",
	Short:         "Grammar checking bot for Telegram and Discord",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot on every platform that has a token",
	Args:  cobra.NoArgs,
	RunE:  runBot,
}

var checkCmd = &cobra.Command{
	Use:   "check <text>",
	Short: "Check a piece of text once and print the corrections",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with secrets redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "grammarbot.yaml", "path to the YAML config file")

	checkCmd.Flags().IntVar(&checkAlgorithm, "algorithm", int(chatconfig.DefaultAlgorithm), "algorithm number (see /settings)")
	checkCmd.Flags().IntVar(&checkLanguage, "language", int(chatconfig.Auto), "language number, 0 detects it")
	checkCmd.Flags().BoolVar(&checkTolerant, "tolerant", false, "skip minor findings")

	rootCmd.AddCommand(runCmd, checkCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRegistry(g config.GrammarConfig) *grammar.Registry {
	return grammar.NewRegistry(
		grammar.NewInternalChecker(),
		grammar.NewYandexChecker(g.YandexURL, g.Timeout),
		grammar.NewLanguageToolChecker(g.LanguageToolURL, g.Timeout),
		grammar.NewDatamuseChecker(g.DatamuseURL, g.Timeout),
	)
}

func runBot(cmd *cobra.Command, _ []string) error {
	if cfg.Telegram.Token == "" && cfg.Discord.Token == "" {
		return errors.New("no platform configured: set TELEGRAM_TOKEN or DISCORD_TOKEN")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := store.Open(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeRepo()

	m := metrics.New()
	pool := review.NewPool(cfg.Review.Workers, cfg.Review.Queue, logger.Named("review"))
	defer pool.Close()

	reviewer := review.NewReviewer(newRegistry(cfg.Grammar), m, logger.Named("review"))
	svc := bot.NewService(repo, command.New(cfg.Telegram.BotName), reviewer, m, logger.Named("bot"))

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Telegram.Token != "" {
		tb, err := telegram.New(telegram.Config{
			Token:       cfg.Telegram.Token,
			PollTimeout: cfg.Telegram.PollTimeout,
		}, svc, pool, logger)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		g.Go(func() error { return tb.Run(gctx) })
	}

	if cfg.Discord.Token != "" {
		da, err := discord.New(discord.Config{Token: cfg.Discord.Token, Prefix: cfg.Discord.Prefix}, svc, pool, logger)
		if err != nil {
			return fmt.Errorf("discord: %w", err)
		}
		g.Go(func() error { return da.Run(gctx) })
	}

	if cfg.Metrics.Addr != "" {
		g.Go(func() error { return metrics.Serve(gctx, cfg.Metrics.Addr, m, logger) })
	}

	logger.Info("grammarbot running",
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("telegram", cfg.Telegram.Token != ""),
		zap.Bool("discord", cfg.Discord.Token != ""))

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runCheck(cmd *cobra.Command, args []string) error {
	alg, ok := chatconfig.ParseAlgorithm(checkAlgorithm)
	if !ok {
		return fmt.Errorf("unknown algorithm %d", checkAlgorithm)
	}
	lang, ok := chatconfig.ParseLanguage(checkLanguage)
	if !ok {
		return fmt.Errorf("unknown language %d", checkLanguage)
	}

	chat := chatconfig.Default("cli")
	chat.Algorithm = alg
	chat.Language = lang
	if checkTolerant {
		chat.Strictness = chatconfig.Tolerant
	}

	reviewer := review.NewReviewer(newRegistry(cfg.Grammar), nil, logger)
	r, err := reviewer.Review(cmd.Context(), chat, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s, %s\n", r.Algorithm, r.Language)
	if r.Empty() {
		fmt.Fprintln(out, "No corrections.")
		return nil
	}
	fmt.Fprintln(out, r.Reply())
	return nil
}
