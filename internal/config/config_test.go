package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"STORE_BACKEND", "STORE_PAGE_SIZE", "DATABASE_URL", "DATABASE_MAX_OPEN_CONNS",
		"DATABASE_MAX_IDLE_CONNS", "DYNAMODB_TABLE", "ORACLE_BACKEND", "SIMILARITY_THRESHOLD",
		"EMOTION_PROVIDER", "WEB_HOST", "WEB_PORT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Store.Backend != StorePostgres {
		t.Errorf("expected default store backend %q, got %q", StorePostgres, cfg.Store.Backend)
	}
	if cfg.Store.PageSize != 100 {
		t.Errorf("expected default page size 100, got %d", cfg.Store.PageSize)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected MaxOpenConns 25, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns != 5 {
		t.Errorf("expected MaxIdleConns 5, got %d", cfg.Database.MaxIdleConns)
	}
	if cfg.DynamoDB.Table != "identities" {
		t.Errorf("expected default table 'identities', got '%s'", cfg.DynamoDB.Table)
	}
	if cfg.Oracle.Backend != OracleRekognition {
		t.Errorf("expected default oracle %q, got %q", OracleRekognition, cfg.Oracle.Backend)
	}
	if cfg.Oracle.SimilarityThreshold != 70 {
		t.Errorf("expected default threshold 70, got %v", cfg.Oracle.SimilarityThreshold)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Web.Port)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "DynamoDB")
	t.Setenv("STORE_PAGE_SIZE", "25")
	t.Setenv("DYNAMODB_TABLE", "student")
	t.Setenv("AWS_REGION", "eu-central-1")
	t.Setenv("SIMILARITY_THRESHOLD", "85.5")
	t.Setenv("WEB_PORT", "9090")

	cfg := Load()

	if cfg.Store.Backend != StoreDynamoDB {
		t.Errorf("expected backend to be lower-cased to %q, got %q", StoreDynamoDB, cfg.Store.Backend)
	}
	if cfg.Store.PageSize != 25 {
		t.Errorf("expected page size 25, got %d", cfg.Store.PageSize)
	}
	if cfg.DynamoDB.Table != "student" {
		t.Errorf("expected table 'student', got '%s'", cfg.DynamoDB.Table)
	}
	if cfg.DynamoDB.Region != "eu-central-1" || cfg.Oracle.Region != "eu-central-1" {
		t.Errorf("expected region to be shared, got %q and %q", cfg.DynamoDB.Region, cfg.Oracle.Region)
	}
	if cfg.Oracle.SimilarityThreshold != 85.5 {
		t.Errorf("expected threshold 85.5, got %v", cfg.Oracle.SimilarityThreshold)
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Web.Port)
	}
}

func TestEnvInt_InvalidFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"empty", "", 7},
		{"not a number", "abc", 7},
		{"zero", "0", 7},
		{"negative", "-3", 7},
		{"valid", "12", 12},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("FACE_ROSTER_TEST_INT", tc.value)
			if got := envInt("FACE_ROSTER_TEST_INT", 7); got != tc.want {
				t.Errorf("envInt(%q) = %d; want %d", tc.value, got, tc.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "memory store with rekognition",
			mutate: func(c *Config) {},
		},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Store.Backend = StorePostgres },
			wantErr: "DATABASE_URL",
		},
		{
			name:    "mariadb without dsn",
			mutate:  func(c *Config) { c.Store.Backend = StoreMariaDB },
			wantErr: "MARIADB_DSN",
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.Store.Backend = "cassandra" },
			wantErr: "unknown STORE_BACKEND",
		},
		{
			name: "faceserver with openai but no token",
			mutate: func(c *Config) {
				c.Oracle.Backend = OracleFaceServer
				c.Oracle.EmotionProvider = EmotionOpenAI
			},
			wantErr: "OPENAI_TOKEN",
		},
		{
			name: "faceserver with gemini key",
			mutate: func(c *Config) {
				c.Oracle.Backend = OracleFaceServer
				c.Oracle.EmotionProvider = EmotionGemini
				c.Gemini.APIKey = "key"
			},
		},
		{
			name:    "threshold above scale",
			mutate:  func(c *Config) { c.Oracle.SimilarityThreshold = 120 },
			wantErr: "SIMILARITY_THRESHOLD",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{
				Store:  StoreConfig{Backend: StoreMemory, PageSize: 100},
				Oracle: OracleConfig{Backend: OracleRekognition, SimilarityThreshold: 70},
			}
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestGetModelPricing(t *testing.T) {
	cfg := Load()

	if p := cfg.GetModelPricing("gpt-4.1-mini"); p.Input == 0 || p.Output == 0 {
		t.Errorf("expected embedded pricing for gpt-4.1-mini, got %+v", p)
	}
	if p := cfg.GetModelPricing("unknown-model"); p != (ModelPricing{}) {
		t.Errorf("expected zero pricing for unknown model, got %+v", p)
	}
}

func TestEnvList(t *testing.T) {
	t.Setenv("WEB_ALLOWED_ORIGINS", " https://roster.example.com, ,https://admin.example.com ")

	cfg := Load()

	if len(cfg.Web.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.Web.AllowedOrigins)
	}
	if cfg.Web.AllowedOrigins[0] != "https://roster.example.com" || cfg.Web.AllowedOrigins[1] != "https://admin.example.com" {
		t.Errorf("unexpected origins %v", cfg.Web.AllowedOrigins)
	}
}
