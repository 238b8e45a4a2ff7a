// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	AWS         AWSConfig
	Blockchain  BlockchainConfig
	Vision      VisionConfig
	IPFS        IPFSConfig
	Workflow    WorkflowConfig
	I18n        I18nConfig
	Frontend    FrontendConfig
}

type FrontendConfig struct {
	BaseURL        string
	AllowedOrigins []string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Driver       string // postgres or sqlite
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  int // in hours
	RefreshTokenTTL int // in hours
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	CloudFrontURL   string
	LocalUploadDir  string
	PublicBaseURL   string
}

type BlockchainConfig struct {
	RPCURL          string
	ChainID         int64
	ChainName       string
	CurrencyName    string
	CurrencySymbol  string
	ExplorerURL     string
	ContractAddress string
	ReceiptPoll     time.Duration
	WatchInterval   time.Duration

	// DevAccount enables the in-process wallet for local development when no RPC URL is set.
	DevAccount string
}

type VisionConfig struct {
	Provider string // mock or google
	APIKey   string
	Endpoint string
}

type IPFSConfig struct {
	PinataJWT string
	Endpoint  string
	Gateway   string
}

type WorkflowConfig struct {
	IDPrefix   string
	SessionTTL time.Duration
	VerifyURL  string

	// AllowSimulatedMint permits the storage-only mint path when no contract is bound.
	AllowSimulatedMint bool
}

type I18nConfig struct {
	DefaultLocale string
	LocalesPath   string
}

const (
	VisionProviderMock   = "mock"
	VisionProviderGoogle = "google"
)

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 120),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "apex_chain"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			SQLitePath:   getEnv("DB_SQLITE_PATH", "apex_chain.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL:  getEnvAsInt("JWT_ACCESS_TTL", 24),
			RefreshTokenTTL: getEnvAsInt("JWT_REFRESH_TTL", 168),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "apex-chain-assets"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
			LocalUploadDir:  getEnv("LOCAL_UPLOAD_DIR", "./uploads"),
			PublicBaseURL:   getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		},
		Blockchain: BlockchainConfig{
			RPCURL:          getEnv("BLOCKCHAIN_RPC_URL", ""),
			ChainID:         int64(getEnvAsInt("BLOCKCHAIN_CHAIN_ID", 80002)),
			ChainName:       getEnv("BLOCKCHAIN_CHAIN_NAME", "Polygon Amoy Testnet"),
			CurrencyName:    getEnv("BLOCKCHAIN_CURRENCY_NAME", "MATIC"),
			CurrencySymbol:  getEnv("BLOCKCHAIN_CURRENCY_SYMBOL", "MATIC"),
			ExplorerURL:     getEnv("BLOCKCHAIN_EXPLORER_URL", "https://amoy.polygonscan.com/"),
			ContractAddress: getEnv("BLOCKCHAIN_CONTRACT_ADDRESS", ""),
			ReceiptPoll:     getEnvAsDuration("BLOCKCHAIN_RECEIPT_POLL", 2*time.Second),
			WatchInterval:   getEnvAsDuration("BLOCKCHAIN_WATCH_INTERVAL", 5*time.Second),
			DevAccount:      getEnv("BLOCKCHAIN_DEV_ACCOUNT", ""),
		},
		Vision: VisionConfig{
			Provider: strings.ToLower(getEnv("VISION_PROVIDER", VisionProviderMock)),
			APIKey:   getEnv("GOOGLE_VISION_API_KEY", ""),
			Endpoint: getEnv("GOOGLE_VISION_ENDPOINT", ""),
		},
		IPFS: IPFSConfig{
			PinataJWT: getEnv("PINATA_JWT", ""),
			Endpoint:  getEnv("PINATA_ENDPOINT", "https://api.pinata.cloud/pinning/pinJSONToIPFS"),
			Gateway:   getEnv("IPFS_GATEWAY", "https://gateway.pinata.cloud/ipfs/"),
		},
		Workflow: WorkflowConfig{
			IDPrefix:           getEnv("WORKFLOW_ID_PREFIX", "F1"),
			SessionTTL:         getEnvAsDuration("WORKFLOW_SESSION_TTL", 30*time.Minute),
			VerifyURL:          getEnv("WORKFLOW_VERIFY_URL", "https://apex-chain.com/verify/"),
			AllowSimulatedMint: getEnvAsBool("WORKFLOW_ALLOW_SIMULATED_MINT", true),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
			LocalesPath:   getEnv("LOCALES_PATH", "./internal/i18n/locales"),
		},
		Frontend: FrontendConfig{
			BaseURL:        getEnv("FRONTEND_BASE_URL", "http://localhost:5173"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Driver == "postgres" && c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Vision.Provider {
	case VisionProviderMock:
	case VisionProviderGoogle:
		if c.Vision.APIKey == "" {
			return fmt.Errorf("GOOGLE_VISION_API_KEY is required when VISION_PROVIDER=google")
		}
	default:
		return fmt.Errorf("unknown vision provider %q", c.Vision.Provider)
	}

	return nil
}

// ChainIDHex returns the configured chain id in the 0x-prefixed form wallets expect.
func (b BlockchainConfig) ChainIDHex() string {
	return "0x" + strconv.FormatInt(b.ChainID, 16)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
