package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/librarian/internal/common"
	"github.com/Veraticus/librarian/internal/config"
	"github.com/Veraticus/librarian/internal/indexer"
	"github.com/Veraticus/librarian/internal/organizer"
	"github.com/Veraticus/librarian/internal/rules"
	"github.com/Veraticus/librarian/internal/scanner"
	"github.com/Veraticus/librarian/internal/service"
	"github.com/Veraticus/librarian/internal/storage"
	"github.com/spf13/viper"
)

// app bundles the components a command needs.
type app struct {
	store     service.Storage
	cfg       *config.Config
	engine    *rules.Engine
	scanner   *scanner.Scanner
	indexer   *indexer.Indexer
	organizer *organizer.Organizer
	clock     service.Clock
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		common.LogError(err, "Failed to close storage", nil)
	}
}

// loadConfig resolves the configuration from viper.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("Invalid configuration", err)
	}
	return cfg, nil
}

// initStorage opens the database and runs migrations.
func initStorage(ctx context.Context, cfg *config.Config) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, common.NewUserError("Could not open the library database "+shortPath(cfg.DatabasePath), err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, common.NewUserError("Could not upgrade the library database "+shortPath(cfg.DatabasePath), err)
	}

	return store, nil
}

// loadRules returns the configured rule file, or the built-in rules.
func loadRules(cfg *config.Config) (rules.RuleSet, error) {
	if cfg.RulesFile == "" {
		return rules.DefaultRuleSet(), nil
	}
	set, err := rules.LoadRuleSet(cfg.RulesFile)
	if err != nil {
		return rules.RuleSet{}, fmt.Errorf("failed to load rules: %w", err)
	}
	common.LogDebug("Loaded rules", common.Fields{"file": cfg.RulesFile, "rules": set.Len()})
	return set, nil
}

func buildEngine(cfg *config.Config) (*rules.Engine, error) {
	set, err := loadRules(cfg)
	if err != nil {
		return nil, err
	}
	return rules.NewEngine(set, rules.Layout{
		DestinationRoot: cfg.Destination,
		StagingDir:      cfg.Staging,
	})
}

func buildScanner(cfg *config.Config) *scanner.Scanner {
	return scanner.New(scanner.Options{
		Roots:        cfg.Roots,
		Exclude:      cfg.Exclude,
		Skip:         []string{cfg.Staging, cfg.Destination},
		SnippetBytes: cfg.SnippetBytes,
		Workers:      cfg.Workers,
	})
}

// openApp loads configuration, storage and the rule engine.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	clock := service.SystemClock{}
	scn := buildScanner(cfg)

	return &app{
		store:     store,
		cfg:       cfg,
		engine:    engine,
		scanner:   scn,
		indexer:   indexer.New(store, scn, engine, clock, cfg.Workers),
		organizer: organizer.New(store, engine, organizer.WithClock(clock)),
		clock:     clock,
	}, nil
}

// shortPath shows paths under the home directory with a tilde.
func shortPath(path string) string {
	home := config.ExpandPath("~")
	if home == "~" || home == "" {
		return path
	}
	if rest, ok := strings.CutPrefix(path, home+string(filepath.Separator)); ok {
		return filepath.Join("~", rest)
	}
	return path
}

func clockNow() time.Time {
	return service.SystemClock{}.Now()
}
