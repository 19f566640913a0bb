package util

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads .env.<env> and then .env into the process environment.
// Variables that are already set are never overridden, so the environment-specific
// file wins over the shared one.
func LoadEnv(env string) error {
	files := []string{".env"}
	if env = strings.TrimSpace(env); env != "" {
		files = []string{".env." + env, ".env"}
	}

	loaded := 0
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("no env file found for environment %q", env)
	}
	return nil
}

// GetEnv returns the value of key, or fallback when it is unset or blank.
func GetEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
