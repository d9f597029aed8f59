package mproject

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ConfigPath  string
	Profile     string
	Verbose     bool
	ApiGinMode  string
	InitSQLPath string

	Ip          string
	Port        string
	AuthAddress string

	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string

	//kc
	AuthDisabled bool
	Issuer       string
	Audience     string
	Realm        string
	ClientID     string
	ClientSecret string

	// database
	DBDriver       string
	DBURL          string
	DBAddress      string
	DBUser         string
	DBPassword     string
	DBName         string
	SQLitePath     string
	SlowQueryMs    int
	DBMaxConns     int
	DBMinConns     int
	DBConnIdleSecs int

	// schedule
	TimeZone         string
	DefaultProjectID int64
}

var secretFields = map[string]struct{}{
	"DBPassword":   {},
	"DBURL":        {},
	"ClientSecret": {},
}

// loadConfig reads the .env file at path (missing file is not fatal) and
// resolves every key against the process environment.
func loadConfig(path string) (Config, error) {
	loadErr := godotenv.Load(path)

	s := strings.Split(path, "/")
	config := Config{
		ConfigPath:  s[len(s)-1],
		Profile:     getEnv("PROFILE", "baremetal"),
		Verbose:     getBoolEnv("VERBOSE", "true"),
		ApiGinMode:  getEnv("GIN_MODE", "debug"),
		InitSQLPath: getEnv("INIT_SQL_PATH", ""),

		Ip:             getEnv("IP", "localhost"),
		Port:           getEnv("PORT", "5060"),
		AuthAddress:    getEnv("AUTH_ADDRESS", "localhost:5555"),
		AllowedOrigins: getEnvFields("ALLOW_ORIGINS", []string{"*"}),
		AllowedMethods: getEnvFields("ALLOW_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		AllowedHeaders: getEnvFields("ALLOW_HEADERS", []string{"*"}),

		AuthDisabled: getBoolEnv("AUTH_DISABLED", "false"),
		Issuer:       getEnv("KC_ISSUER", ""),
		Audience:     getEnv("KC_AUDIENCE", "pms-front"),
		Realm:        getEnv("KC_REALM", "pms-myproj"),
		ClientID:     getEnv("KC_CLIENT", "admin"),
		ClientSecret: getEnv("KC_CLIENT_SECRET", ""),

		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBURL:          getEnv("DB_URL", ""),
		DBAddress:      getEnv("DB_ADDRESS", "api-db:5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "pms"),
		SQLitePath:     getEnv("SQLITE_PATH", "./data/pms.db"),
		SlowQueryMs:    getIntEnv("SLOW_QUERY_MS", 100),
		DBMaxConns:     getIntEnv("DB_MAX_CONNS", 10),
		DBMinConns:     getIntEnv("DB_MIN_CONNS", 2),
		DBConnIdleSecs: getIntEnv("DB_CONN_IDLE_SECS", 60),

		TimeZone:         getEnv("TIME_ZONE", "Asia/Seoul"),
		DefaultProjectID: int64(getIntEnv("DEFAULT_PROJECT_ID", 0)),
	}
	if config.Issuer == "" {
		config.Issuer = fmt.Sprintf("http://%s/realms/%s", config.AuthAddress, config.Realm)
	}

	if loadErr != nil && !os.IsNotExist(loadErr) {
		return config, fmt.Errorf("read config file %s: %w", path, loadErr)
	}
	if err := config.validate(); err != nil {
		return config, err
	}
	return config, nil
}

// PrintConfig resolves the configuration at path and writes it to w.
func PrintConfig(path string, w io.Writer) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, cfg.String())
	return err
}

func (cfg Config) validate() error {
	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", cfg.DBDriver)
	}
	if cfg.DefaultProjectID < 0 {
		return fmt.Errorf("DEFAULT_PROJECT_ID must not be negative")
	}
	return nil
}

// postgresDSN prefers DB_URL over the individual DB_* keys.
func (cfg Config) postgresDSN() string {
	if cfg.DBURL != "" {
		return cfg.DBURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=disable",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBAddress,
		cfg.DBName,
	)
}

func getEnv(env, fallback string) string {
	if value, exists := os.LookupEnv(env); exists {
		return value
	}

	return fallback
}

func getEnvFields(env string, fallback []string) []string {
	if value, exists := os.LookupEnv(env); exists {
		fields := strings.Split(strings.TrimSpace(value), ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		return fields
	}

	return fallback
}

func getBoolEnv(env, fallback string) bool {
	if value, exists := os.LookupEnv(env); exists {
		return strings.ToLower(value) == "true"
	}

	return strings.ToLower(fallback) == "true"
}

func getIntEnv(env string, fallback int) int {
	if value, exists := os.LookupEnv(env); exists {
		intValue, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil {
			return intValue
		}
	}

	return fallback
}

// String lists every field, one per line, with secrets masked.
func (cfg *Config) String() string {
	var strBuilder strings.Builder

	reflectedValues := reflect.ValueOf(cfg).Elem()
	reflectedTypes := reflect.TypeOf(cfg).Elem()

	strBuilder.WriteString(fmt.Sprintf("[CFG]CONFIGURATION: %s\n", cfg.ConfigPath))

	for i := range reflectedValues.NumField() {
		fieldName := reflectedTypes.Field(i).Name
		fieldValue := reflectedValues.Field(i).Interface()

		if _, secret := secretFields[fieldName]; secret {
			if s, ok := fieldValue.(string); ok && s != "" {
				fieldValue = "********"
			}
		}

		strBuilder.WriteString(fmt.Sprintf("[CFG]%2d. %-18s -> %v\n", i+1, fieldName, fieldValue))
	}

	return strBuilder.String()
}
