package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	LogLevel string
	Env      string

	DataDir   string
	UploadDir string

	JWTSecret string

	// PersistInterval is the autosave period for the flat-file store.
	// Mutations also persist synchronously, so this bounds how much a
	// hard crash between triggers can lose.
	PersistInterval time.Duration

	// MaxConnsPerIP caps simultaneous websocket sessions per source
	// address. The cap is enforced at upgrade time.
	MaxConnsPerIP int

	// BackupKeep is how many timestamped backups to retain per
	// collection file.
	BackupKeep int
}

func LoadConfig() (*Config, error) {
	return &Config{
		Port:            GetEnv("PORT", "3000"),
		Env:             GetEnv("ENV", "development"),
		LogLevel:        GetEnv("LOG_LEVEL", "info"),
		DataDir:         GetEnv("DATA_DIR", "./data"),
		UploadDir:       GetEnv("UPLOAD_DIR", "./uploads"),
		JWTSecret:       GetEnv("JWT_SECRET", "dev-secret-change-me"),
		PersistInterval: time.Duration(GetEnvInt("PERSIST_INTERVAL_SECONDS", 30)) * time.Second,
		MaxConnsPerIP:   GetEnvInt("MAX_CONNECTIONS_PER_IP", 10),
		BackupKeep:      GetEnvInt("BACKUP_KEEP", 10),
	}, nil
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
