package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	ServerHost string
	AppEnv     string

	DBDriver string
	DBDSN    string

	SecretAccessToken string
	CORSOrigins       []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// AtomicStock makes the borrow and return routes adjust book quantity in
	// the same transaction as the loan change.
	AtomicStock bool
	// ReturnRequiresOwner restricts loan deletion to the borrower.
	ReturnRequiresOwner bool
	// ReadCache keeps catalog reads in a per-process cache. Writes made by
	// other processes are not seen until entries expire, so turn it off when
	// several replicas share the database.
	ReadCache bool
}

// IsProduction reports whether cookies must be Secure with SameSite=None.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads the optional env file and builds a Config from the environment.
// A missing env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
		log.Printf("No %s file found, using process environment\n", envFile)
	}

	cfg := &Config{
		ServerHost:          serverHost(),
		AppEnv:              getEnv("APP_ENV", "development"),
		DBDriver:            strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		DBDSN:               os.Getenv("DB_DSN"),
		SecretAccessToken:   os.Getenv("SECRET_ACCESS_TOKEN"),
		CORSOrigins:         splitList(getEnv("CORS_ORIGINS", "http://localhost:5174")),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		AtomicStock:         true,
		ReturnRequiresOwner: false,
		ReadCache:           true,
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.AtomicStock, err = getBool("ATOMIC_STOCK", true); err != nil {
		return nil, err
	}
	if cfg.ReturnRequiresOwner, err = getBool("RETURN_REQUIRES_OWNER", false); err != nil {
		return nil, err
	}
	if cfg.ReadCache, err = getBool("READ_CACHE", true); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Warnings lists settings that are valid but weaken the service's guarantees.
func (c *Config) Warnings() []string {
	var warnings []string
	if !c.AtomicStock {
		warnings = append(warnings, "ATOMIC_STOCK=false: borrow and return no longer move stock; "+
			"clients must call the quantity routes and a failure between the two calls leaves stock wrong")
	}
	return warnings
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBDSN == "" {
			return errors.New("DB_DSN is required for the postgres driver")
		}
	case DriverSQLite:
		if c.DBDSN == "" {
			c.DBDSN = "bookhut.db"
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.SecretAccessToken == "" {
		return errors.New("SECRET_ACCESS_TOKEN is required")
	}
	return nil
}

func serverHost() string {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":3000"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
