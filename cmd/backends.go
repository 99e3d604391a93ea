package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/kozaktomas/face-roster/internal/config"
	"github.com/kozaktomas/face-roster/internal/database"
	"github.com/kozaktomas/face-roster/internal/database/dynamodb"
	"github.com/kozaktomas/face-roster/internal/database/mariadb"
	"github.com/kozaktomas/face-roster/internal/database/memory"
	"github.com/kozaktomas/face-roster/internal/database/postgres"
	"github.com/kozaktomas/face-roster/internal/oracle"
	"github.com/kozaktomas/face-roster/internal/recognition"
)

// usageReporter is implemented by LLM-backed emotion detectors.
type usageReporter interface {
	Name() string
	GetUsage() oracle.Usage
}

// backends holds the store and oracle selected by configuration.
type backends struct {
	cfg     *config.Config
	store   database.IdentityWriter
	oracle  oracle.Oracle
	usage   usageReporter
	closers []func() error
}

// Close releases database connections.
func (b *backends) Close() {
	for _, c := range b.closers {
		if err := c(); err != nil {
			slog.Warn("closing backend", "error", err)
		}
	}
}

// service wires the identification flow over the selected backends.
func (b *backends) service() *recognition.Service {
	return recognition.NewService(b.store, b.oracle, b.cfg.Store.PageSize, slog.Default())
}

// printUsage reports LLM token usage when an LLM emotion detector was used.
func (b *backends) printUsage() {
	if b.usage == nil {
		return
	}
	u := b.usage.GetUsage()
	if u.InputTokens == 0 && u.OutputTokens == 0 {
		return
	}
	fmt.Printf("\n%s usage: %d input / %d output tokens, $%.4f\n", b.usage.Name(), u.InputTokens, u.OutputTokens, u.TotalCost)
}

// openBackends validates configuration and connects the store and oracle.
func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	b := &backends{cfg: cfg}
	if err := b.openStore(ctx); err != nil {
		return nil, err
	}
	if err := b.openOracle(ctx); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// openStoreOnly connects just the identity store, for commands that never call the oracle.
func openStoreOnly(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{cfg: cfg}
	if err := b.openStore(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *backends) openStore(ctx context.Context) error {
	cfg := b.cfg
	switch cfg.Store.Backend {
	case config.StoreMemory:
		slog.Warn("using in-memory identity store, identities are lost on exit")
		b.store = memory.NewStore()

	case config.StorePostgres:
		pool, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.store = postgres.NewIdentityRepository(pool)

	case config.StoreMariaDB:
		pool, err := mariadb.Open(ctx, cfg.MariaDB.DSN)
		if err != nil {
			return fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.store = mariadb.NewIdentityRepository(pool)

	case config.StoreDynamoDB:
		awsCfg, err := loadAWSConfig(ctx, cfg.DynamoDB.Region)
		if err != nil {
			return err
		}
		b.store = dynamodb.NewStoreFromConfig(awsCfg, cfg.DynamoDB.Table)

	default:
		return errors.New("unknown store backend: " + cfg.Store.Backend)
	}

	slog.Info("identity store ready", "backend", cfg.Store.Backend)
	return nil
}

func (b *backends) openOracle(ctx context.Context) error {
	cfg := b.cfg
	switch cfg.Oracle.Backend {
	case config.OracleRekognition:
		awsCfg, err := loadAWSConfig(ctx, cfg.Oracle.Region)
		if err != nil {
			return err
		}
		b.oracle = oracle.NewRekognitionFromConfig(awsCfg, cfg.Oracle.SimilarityThreshold)

	case config.OracleFaceServer:
		detector, err := newEmotionDetector(ctx, cfg)
		if err != nil {
			return err
		}
		b.usage = detector
		b.oracle = &oracle.Split{
			Comparer: oracle.NewFaceServer(cfg.Oracle.FaceServerURL, cfg.Oracle.SimilarityThreshold),
			Detector: detector,
		}

	default:
		return errors.New("unknown oracle backend: " + cfg.Oracle.Backend)
	}

	slog.Info("face oracle ready", "backend", cfg.Oracle.Backend, "threshold", cfg.Oracle.SimilarityThreshold)
	return nil
}

// emotionDetector is an LLM-backed face detector that reports its usage.
type emotionDetector interface {
	oracle.FaceDetector
	usageReporter
}

func newEmotionDetector(ctx context.Context, cfg *config.Config) (emotionDetector, error) {
	switch cfg.Oracle.EmotionProvider {
	case config.EmotionOpenAI:
		return oracle.NewOpenAIEmotion(cfg.OpenAI.Token, modelPricing(cfg, string(oracle.OpenAIModel))), nil
	case config.EmotionGemini:
		detector, err := oracle.NewGeminiEmotion(ctx, cfg.Gemini.APIKey, modelPricing(cfg, oracle.GeminiModel))
		if err != nil {
			return nil, err
		}
		return detector, nil
	default:
		return nil, errors.New("unknown emotion provider: " + cfg.Oracle.EmotionProvider)
	}
}

func modelPricing(cfg *config.Config, model string) oracle.ModelPricing {
	p := cfg.GetModelPricing(model)
	return oracle.ModelPricing{Input: p.Input, Output: p.Output}
}

// loadAWSConfig resolves credentials from the default chain; an empty region defers to AWS_REGION or the shared config.
func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return awsCfg, nil
}
