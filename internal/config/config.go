// Package config holds helpers shared by service configs: '.env' reading and typed env setters
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Apply raw env value to an option
// Setters are called with not empty values only
type Setter func(value string) error

func String(o *string) Setter {
	return func(value string) error {
		*o = value
		return nil
	}
}

func Int(o *int) Setter {
	return func(value string) error {
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*o = v
		return nil
	}
}

func Bool(o *bool) Setter {
	return func(value string) error {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		*o = v
		return nil
	}
}

func Duration(o *time.Duration) Setter {
	return func(value string) error {
		v, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*o = v
		return nil
	}
}

// Apply env values to options
// Empty values are skipped, so defaults stay untouched
func Apply(getenv func(string) string, setters map[string]Setter) error {
	keys := make([]string, 0, len(setters))
	for key := range setters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		value := getenv(key)
		if value == "" {
			continue
		}
		if err := setters[key](value); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s=%q: %w", key, value, err))
		}
	}

	return errors.Join(errs...)
}

// Read '.env' file located at working directory
// Missing file is not an error: nil map returned
func ReadDotEnv(getwd func() (string, error)) (map[string]string, error) {
	wd, err := getwd()
	if err != nil {
		return nil, err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return envMap, nil
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	default:
		return nil, err
	}
}
