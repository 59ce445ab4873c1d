package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	// Import built-in indexers to register them
	_ "github.com/goran-ethernal/CurateIndexor/indexers/curate"
	"github.com/goran-ethernal/CurateIndexor/internal/common"
	"github.com/goran-ethernal/CurateIndexor/internal/config"
	"github.com/goran-ethernal/CurateIndexor/internal/db"
	"github.com/goran-ethernal/CurateIndexor/internal/downloader"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
	"github.com/goran-ethernal/CurateIndexor/internal/metrics"
	downloadermig "github.com/goran-ethernal/CurateIndexor/internal/migrations"
	"github.com/goran-ethernal/CurateIndexor/internal/reorg"
	"github.com/goran-ethernal/CurateIndexor/internal/rpc"
	pkgconfig "github.com/goran-ethernal/CurateIndexor/pkg/config"
	"github.com/goran-ethernal/CurateIndexor/pkg/indexer"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║         CurateIndexor v%s              ║
║   Curated Registry Event Projection       ║
╚═══════════════════════════════════════════╝
`
)

var (
	configPath string
	resetBlock uint64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "curate-indexer",
	Short: "CurateIndexor - curated registry indexer",
	Long: `CurateIndexor follows light curated registries, their arbitrators and factories
and projects items, requests, disputes, appeal rounds and contributions into sqlite.
Logs are downloaded in finalized chunks with reorg detection and checkpointing.`,
	Version: version,
	RunE:    runIndexer,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available indexer types",
	Long:  `List all registered indexer types that can be used in the configuration file.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Available indexer types:")
		types := indexer.ListRegistered()
		if len(types) == 0 {
			fmt.Println("  (no indexers registered)")
			return
		}
		for _, t := range types {
			fmt.Printf("  - %s\n", t)
		}
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the configuration JSON schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := jsonschema.Reflector{FieldNameTag: "json"}
		schema := reflector.Reflect(&pkgconfig.Config{})
		out, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode schema: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Rewind the download checkpoint",
	Long: `Rewind the download checkpoint to the given block. Indexing resumes from the next block.
Curate events already applied are recognised by their journal entry and not applied twice.`,
	RunE: runReset,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	resetCmd.Flags().Uint64Var(&resetBlock, "block", 0, "last block to keep as indexed")
	_ = resetCmd.MarkFlagRequired("block")

	rootCmd.AddCommand(listCmd, schemaCmd, resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.NewComponentLoggerFromConfig(common.ComponentSyncManager, cfg.Logging)

	database, err := db.NewSQLiteDBFromConfig(cfg.Downloader.DB)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	if err := downloadermig.RunMigrationsDB(log, database); err != nil {
		database.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	syncManager, err := downloader.NewSyncManager(database, log, nil)
	if err != nil {
		database.Close()
		return fmt.Errorf("failed to create sync manager: %w", err)
	}
	defer syncManager.Close()

	if err := syncManager.Reset(resetBlock); err != nil {
		return err
	}
	fmt.Printf("Checkpoint reset to block %d\n", resetBlock)

	return nil
}

func runIndexer(cmd *cobra.Command, args []string) error {
	fmt.Printf(banner, version)

	// Load configuration
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	log := logger.NewComponentLoggerFromConfig(common.ComponentDownloader, cfg.Logging)

	log.Info("Connecting to Ethereum node...")
	ethClient, err := rpc.NewClient(ctx, cfg.Downloader.RPCURL, cfg.Downloader.Retry)
	if err != nil {
		return fmt.Errorf("failed to create RPC client: %w", err)
	}
	log.Infof("Connected to Ethereum node: %s", cfg.Downloader.RPCURL)

	// Initialize metrics server if enabled
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metrics.BuildInfoSet(version)
		metricsServer := metrics.NewServer(cfg.Metrics, log)
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := metricsServer.Stop(context.Background()); err != nil {
				log.Warnf("Failed to stop metrics server: %v", err)
			}
		}()
	}

	log.Info("Running database migrations...")
	database, err := db.NewSQLiteDBFromConfig(cfg.Downloader.DB)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	if err := downloadermig.RunMigrationsDB(log, database); err != nil {
		database.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	dbMaintenance := db.NewMaintenanceCoordinator(
		cfg.Downloader.Maintenance,
		logger.NewComponentLoggerFromConfig(common.ComponentMaintenance, cfg.Logging),
		db.Target{Name: "downloader", Path: cfg.Downloader.DB.Path, DB: database},
	)

	reorgDetector, err := reorg.NewReorgDetector(
		database,
		ethClient,
		logger.NewComponentLoggerFromConfig(common.ComponentReorgDetector, cfg.Logging),
		dbMaintenance,
	)
	if err != nil {
		return fmt.Errorf("failed to create reorg detector: %w", err)
	}

	syncManager, err := downloader.NewSyncManager(
		database,
		logger.NewComponentLoggerFromConfig(common.ComponentSyncManager, cfg.Logging),
		dbMaintenance,
	)
	if err != nil {
		return fmt.Errorf("failed to create sync manager: %w", err)
	}

	dl, err := downloader.New(
		cfg.Downloader,
		ethClient,
		reorgDetector,
		syncManager,
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create downloader: %w", err)
	}
	defer dl.Close()

	log.Infof("Registering %d indexer(s)...", len(cfg.Indexers))
	for _, idxCfg := range cfg.Indexers {
		log.Infof("Creating indexer: %s (type: %s)", idxCfg.Name, idxCfg.Type)

		idx, err := indexer.Create(ctx, idxCfg, ethClient, logger.GetDefaultLogger())
		if err != nil {
			return fmt.Errorf("failed to create indexer %s: %w", idxCfg.Name, err)
		}

		if participant, ok := idx.(db.Participant); ok {
			dbMaintenance.AddTarget(participant.MaintenanceTarget())
			participant.SetMaintenance(dbMaintenance)
		}

		dl.RegisterIndexer(idx)
		log.Infof("✓ Registered indexer: %s", idxCfg.Name)
	}

	if err := dbMaintenance.Start(ctx); err != nil {
		return fmt.Errorf("failed to start maintenance: %w", err)
	}

	log.Info("Starting CurateIndexor...")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dl.Download(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return dbMaintenance.Stop()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("downloader failed: %w", err)
	}

	log.Info("CurateIndexor stopped successfully")
	return nil
}
