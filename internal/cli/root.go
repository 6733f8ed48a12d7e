// Package cli implements the creditd command tree: the HTTP server plus
// operator commands that run against the same store.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-listing-credits/internal/cache"
	"github.com/tbourn/go-listing-credits/internal/config"
	"github.com/tbourn/go-listing-credits/internal/repo"
	"github.com/tbourn/go-listing-credits/internal/services"
	"github.com/tbourn/go-listing-credits/internal/sysutil"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

type rootOptions struct {
	envFile string
	cfg     config.Config
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "creditd",
		Short:         "Listing credit engine",
		Long:          `creditd serves the listing credit API and runs operator tasks against its store.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", opts.envFile, err)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.cfg = cfg
			sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newGrantCmd(opts),
		newDonateCmd(opts),
		newStatsCmd(opts),
	)
	return root
}

// Execute runs the command tree and returns the first error.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// app is the wired engine shared by every command.
type app struct {
	cfg   config.Config
	db    *gorm.DB
	cache *cache.Cache
	eng   *services.Engine
}

func openApp(ctx context.Context, cfg config.Config) (*app, error) {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := repo.EnsureSettings(ctx, db, cfg.Credits.DailyFreeListings, cfg.Credits.CommunityPotSeed); err != nil {
		return nil, fmt.Errorf("seed settings: %w", err)
	}

	c := cache.New()
	eng := services.NewEngine(db, repo.Store{}, c, services.EngineOptions{
		ReaderTTL: services.ReaderTTLs{
			Settings: cfg.Cache.SettingsTTL,
			Profile:  cfg.Cache.ProfileTTL,
			Pot:      cfg.Cache.PotTTL,
		},
		StatsTTL:     cfg.Cache.StatsTTL,
		UserStatsTTL: cfg.Cache.UserStatsTTL,
		FetchTimeout: cfg.Cache.FetchTimeout,
		Location:     cfg.Credits.Location,
	})
	return &app{cfg: cfg, db: db, cache: c, eng: eng}, nil
}

func (a *app) Close() {
	a.cache.Close()
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}
}
