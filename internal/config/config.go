package config

import (
	_ "embed"
	"errors"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prices.yaml
var pricesYAML []byte

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMariaDB  = "mariadb"
	StoreDynamoDB = "dynamodb"
)

// Oracle backends.
const (
	OracleRekognition = "rekognition"
	OracleFaceServer  = "faceserver"
)

// Emotion providers used together with the face server oracle.
const (
	EmotionOpenAI = "openai"
	EmotionGemini = "gemini"
)

type Config struct {
	Store    StoreConfig
	Database DatabaseConfig
	MariaDB  MariaDBConfig
	DynamoDB DynamoDBConfig
	Oracle   OracleConfig
	OpenAI   OpenAIConfig
	Gemini   GeminiConfig
	Web      WebConfig
	Prices   PricesConfig
}

type StoreConfig struct {
	Backend  string // memory, postgres, mariadb or dynamodb (default postgres)
	PageSize int    // records fetched per scan page (default 100)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type MariaDBConfig struct {
	DSN string // e.g. roster:roster@tcp(mariadb:3306)/roster?parseTime=true
}

type DynamoDBConfig struct {
	Region string
	Table  string // defaults to identities
}

type OracleConfig struct {
	Backend             string  // rekognition or faceserver (default rekognition)
	Region              string  // AWS region for Rekognition
	SimilarityThreshold float64 // 0-100, defaults to 70
	FaceServerURL       string  // defaults to http://localhost:8000
	EmotionProvider     string  // openai or gemini, used with faceserver
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // WEB_ALLOWED_ORIGINS, comma-separated
}

type PricesConfig struct {
	Models map[string]ModelPricing `yaml:"models"`
}

type ModelPricing struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	var prices PricesConfig
	if err := yaml.Unmarshal(pricesYAML, &prices); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded prices.yaml: " + err.Error())
	}

	region := os.Getenv("AWS_REGION")

	return &Config{
		Store: StoreConfig{
			Backend:  strings.ToLower(envString("STORE_BACKEND", StorePostgres)),
			PageSize: envInt("STORE_PAGE_SIZE", 100),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		MariaDB: MariaDBConfig{
			DSN: os.Getenv("MARIADB_DSN"),
		},
		DynamoDB: DynamoDBConfig{
			Region: region,
			Table:  envString("DYNAMODB_TABLE", "identities"),
		},
		Oracle: OracleConfig{
			Backend:             strings.ToLower(envString("ORACLE_BACKEND", OracleRekognition)),
			Region:              region,
			SimilarityThreshold: envFloat("SIMILARITY_THRESHOLD", 70),
			FaceServerURL:       envString("FACE_SERVER_URL", "http://localhost:8000"),
			EmotionProvider:     strings.ToLower(envString("EMOTION_PROVIDER", EmotionOpenAI)),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Prices: prices,
	}
}

// Validate reports settings the selected backends cannot run without.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL environment variable is required for the postgres store"))
		}
	case StoreMariaDB:
		if c.MariaDB.DSN == "" {
			errs = append(errs, errors.New("MARIADB_DSN environment variable is required for the mariadb store"))
		}
	case StoreDynamoDB:
		if c.DynamoDB.Table == "" {
			errs = append(errs, errors.New("DYNAMODB_TABLE must not be empty"))
		}
	default:
		errs = append(errs, errors.New("unknown STORE_BACKEND: "+c.Store.Backend))
	}

	switch c.Oracle.Backend {
	case OracleRekognition:
	case OracleFaceServer:
		switch c.Oracle.EmotionProvider {
		case EmotionOpenAI:
			if c.OpenAI.Token == "" {
				errs = append(errs, errors.New("OPENAI_TOKEN environment variable is required for openai emotion detection"))
			}
		case EmotionGemini:
			if c.Gemini.APIKey == "" {
				errs = append(errs, errors.New("GEMINI_API_KEY environment variable is required for gemini emotion detection"))
			}
		default:
			errs = append(errs, errors.New("unknown EMOTION_PROVIDER: "+c.Oracle.EmotionProvider))
		}
	default:
		errs = append(errs, errors.New("unknown ORACLE_BACKEND: "+c.Oracle.Backend))
	}

	if c.Oracle.SimilarityThreshold > 100 {
		errs = append(errs, errors.New("SIMILARITY_THRESHOLD must be within 0-100"))
	}

	return errors.Join(errs...)
}

// GetModelPricing returns pricing for a specific model, with fallback defaults
func (c *Config) GetModelPricing(modelName string) ModelPricing {
	if pricing, ok := c.Prices.Models[modelName]; ok {
		return pricing
	}
	// Return zero pricing if model not found
	return ModelPricing{}
}
