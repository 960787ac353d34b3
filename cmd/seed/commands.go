package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-service/config"
	"catalog-service/internal/broker"
	"catalog-service/internal/imagecheck"
	"catalog-service/internal/redisclient"
	"catalog-service/internal/seed"
	"catalog-service/internal/service"
	"catalog-service/internal/store"
	"catalog-service/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	rootCmd = &cobra.Command{
		Use:   "catalog-seed",
		Short: "Seed and repair the phone catalog",
		Long: `catalog-seed loads the versioned seed file into the catalog and runs
the batch repair jobs. Every job continues past failed items and prints a summary.`,
		SilenceUsage: true,
	}
	loadCmd = &cobra.Command{
		Use:   "load",
		Short: "Create every product of a seed file that is not in the catalog yet",
		Args:  cobra.NoArgs,
		RunE:  runLoad,
	}
	categorizeCmd = &cobra.Command{
		Use:   "categorize",
		Short: "Recompute the category tags of every product",
		Args:  cobra.NoArgs,
		RunE:  runCategorize,
	}
	verifyImagesCmd = &cobra.Command{
		Use:   "verify-images",
		Short: "Check image reachability of draft products",
		Args:  cobra.NoArgs,
		RunE:  runVerifyImages,
	}
	fixImagesCmd = &cobra.Command{
		Use:   "fix-images",
		Short: "Replace product images from a fix file",
		Args:  cobra.NoArgs,
		RunE:  runFixImages,
	}

	seedFile   string
	fixFile    string
	verifyAll  bool
	noValidate bool
)

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().StringVarP(&seedFile, "file", "f", "data/phones.yaml", "Seed file (YAML or JSON)")

	rootCmd.AddCommand(categorizeCmd)

	rootCmd.AddCommand(verifyImagesCmd)
	verifyImagesCmd.Flags().BoolVar(&verifyAll, "all", false, "Re-check products that are already verified")

	rootCmd.AddCommand(fixImagesCmd)
	fixImagesCmd.Flags().StringVarP(&fixFile, "file", "f", "", "Image fix file (YAML or JSON)")
	_ = fixImagesCmd.MarkFlagRequired("file")
	fixImagesCmd.Flags().BoolVar(&noValidate, "no-validate", false, "Skip the image URL shape check")
}

// session holds the connections a job runs against.
type session struct {
	runner  *seed.Runner
	cleanup func()
}

func open(ctx context.Context) (*session, error) {
	cfg := config.Load()
	if err := util.InitLogger(cfg.Server.Env, "catalog-seed"); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger := util.GetLogger()

	db, err := store.Open(ctx, store.Options{
		Driver:       cfg.Store.Driver,
		MongoURI:     cfg.Store.MongoURI,
		DatabaseName: cfg.Store.DatabaseName,
		DatabaseURL:  cfg.Store.DatabaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}
	closers := []func() error{db.Close}

	var locker seed.Locker
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		locker = redisClient
		closers = append(closers, redisClient.Close)
	}

	var publisher service.EventPublisher = broker.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCatalogEvents)
		publisher = broker.NewEventPublisher(producer)
		closers = append(closers, producer.Close)
	}

	catalog := service.NewCatalogService(db,
		imagecheck.NewVerifier(nil, cfg.Images.HeadTimeout, cfg.Images.Concurrency),
		publisher,
		service.CatalogOptions{
			VerifyOnCreate:  cfg.Images.VerifyOnCreate,
			DefaultCategory: cfg.Business.DefaultCategory,
		})

	runner := seed.NewRunner(catalog, locker, seed.Options{
		RatePerSecond: cfg.Seed.RatePerSecond,
		LockTTL:       cfg.Seed.LockTTL,
	})

	return &session{
		runner: runner,
		cleanup: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				if err := closers[i](); err != nil {
					logger.Warn("Error closing connection", zap.Error(err))
				}
			}
			util.SyncLogger()
		},
	}, nil
}

// withSession runs job with a signal-aware context and prints its result as JSON.
func withSession(job func(ctx context.Context, s *session) (any, error)) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	s, err := open(openCtx)
	cancel()
	if err != nil {
		return err
	}
	defer s.cleanup()

	result, err := job(ctx, s)
	if result != nil {
		out, mErr := json.MarshalIndent(result, "", "  ")
		if mErr == nil && string(out) != "null" {
			fmt.Println(string(out))
		}
	}
	return err
}

func runLoad(cmd *cobra.Command, args []string) error {
	file, err := seed.ReadFile(seedFile)
	if err != nil {
		return err
	}
	return withSession(func(ctx context.Context, s *session) (any, error) {
		return s.runner.Load(ctx, file.Products)
	})
}

func runCategorize(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session) (any, error) {
		return s.runner.Recategorize(ctx)
	})
}

func runVerifyImages(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session) (any, error) {
		return s.runner.VerifyImages(ctx, verifyAll)
	})
}

func runFixImages(cmd *cobra.Command, args []string) error {
	file, err := seed.ReadFixFile(fixFile)
	if err != nil {
		return err
	}
	return withSession(func(ctx context.Context, s *session) (any, error) {
		return s.runner.FixImages(ctx, file.Fixes, !noValidate)
	})
}
