package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// envReader reads typed variables and remembers every parse failure.
type envReader struct {
	errs []error
}

func (r *envReader) get(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func (r *envReader) getInt(key string, fallback int) int {
	return parseEnv(r, key, fallback, strconv.Atoi)
}

func (r *envReader) getFloat(key string, fallback float64) float64 {
	return parseEnv(r, key, fallback, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

func (r *envReader) getBool(key string, fallback bool) bool {
	return parseEnv(r, key, fallback, strconv.ParseBool)
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}

func parseEnv[T any](r *envReader, key string, fallback T, parse func(string) (T, error)) T {
	raw := r.get(key, "")
	if raw == "" {
		return fallback
	}
	val, err := parse(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s %q: %w", key, raw, err))
		return fallback
	}
	return val
}
