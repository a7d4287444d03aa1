package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL  string
	HTTPPort     int
	FactoryCodes []string
}

func New() (*Config, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	cfg := &Config{
		DatabaseURL:  databaseURL,
		HTTPPort:     8080,
		FactoryCodes: []string{"AMA", "AMC", "AMD"},
	}

	var err error
	cfg.HTTPPort, err = getEnvAsInt("HTTP_PORT", cfg.HTTPPort)
	if err != nil {
		return nil, err
	}

	if raw := os.Getenv("FACTORY_CODES"); raw != "" {
		var codes []string
		for _, code := range strings.Split(raw, ",") {
			code = strings.ToUpper(strings.TrimSpace(code))
			if code != "" {
				codes = append(codes, code)
			}
		}
		if len(codes) == 0 {
			return nil, fmt.Errorf("invalid value for FACTORY_CODES: expected a comma-separated list, got '%s'", raw)
		}
		cfg.FactoryCodes = codes
	}

	return cfg, nil
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected an integer, got '%s'", key, valueStr)
	}

	return value, nil
}
