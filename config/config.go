package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
	StorageDriverMemory   = "memory"

	OverdraftPolicyClamp  = "clamp"
	OverdraftPolicyStrict = "strict"
)

type Config struct {
	ServerPort     string
	StorageDriver  string
	DBHost         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBPort         string
	SQLitePath     string
	RedisAddr      string
	RedisPort      string
	RedisPassword  string
	JWTSecret      string
	AllowedOrigins []string

	// Ledger configuration
	TransactionHashSecret string
	DefaultBalance        int64
	OverdraftPolicy       string
	MaxRetries            int
	ResetBatchSize        int
	VerifyIdentity        bool

	// Log configuration
	LogLevel      string
	LogFilename   string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func (c *Config) RedisFullAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisAddr, c.RedisPort)
}

// RedisEnabled reports whether a redis host was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		// Ignore error if .env file is not found
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	jwtSecret := os.Getenv("JWT_SECRET")

	cfg := &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		StorageDriver:  strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		DBHost:         os.Getenv("DB_HOST"),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         os.Getenv("DB_NAME"),
		DBPort:         getEnv("DB_PORT", "5432"),
		SQLitePath:     getEnv("SQLITE_PATH", "tokenledger.db"),
		RedisAddr:      os.Getenv("REDIS_HOST"),
		RedisPort:      getEnv("REDIS_PORT", "6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		JWTSecret:      jwtSecret,
		AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		TransactionHashSecret: getEnv("TRANSACTION_HASH_SECRET", jwtSecret),
		DefaultBalance:        getEnvAsInt64("LEDGER_DEFAULT_BALANCE", 0),
		OverdraftPolicy:       strings.ToLower(getEnv("LEDGER_OVERDRAFT_POLICY", OverdraftPolicyClamp)),
		MaxRetries:            getEnvAsInt("LEDGER_MAX_RETRIES", 3),
		ResetBatchSize:        getEnvAsInt("LEDGER_RESET_BATCH_SIZE", 200),
		VerifyIdentity:        getEnvAsBool("LEDGER_VERIFY_IDENTITY", true),

		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		LogFilename:   getEnv("LOG_FILENAME", "logs/app.log"),
		LogMaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:     getEnvAsInt("LOG_MAX_AGE", 28),
		LogCompress:   getEnvAsBool("LOG_COMPRESS", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres, StorageDriverSQLite, StorageDriverMemory:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.OverdraftPolicy {
	case OverdraftPolicyClamp, OverdraftPolicyStrict:
	default:
		return fmt.Errorf("unsupported LEDGER_OVERDRAFT_POLICY %q", c.OverdraftPolicy)
	}
	if c.DefaultBalance < 0 {
		return fmt.Errorf("LEDGER_DEFAULT_BALANCE must not be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("LEDGER_MAX_RETRIES must not be negative")
	}
	if c.ResetBatchSize < 1 {
		return fmt.Errorf("LEDGER_RESET_BATCH_SIZE must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
