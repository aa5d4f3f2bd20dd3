package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// LoadFile loads configuration with the settings of a YAML or TOML file as
// defaults. The file holds flat KEY: value pairs named like the environment
// variables; variables already set in the environment win over the file.
// LoadFile edits the process environment while it runs, so call it during
// startup only.
func LoadFile(path string) (*Config, error) {
	values, err := readSettings(path)
	if err != nil {
		return nil, err
	}

	known := knownKeys(reflect.TypeOf(Config{}))
	var applied []string
	defer func() {
		for _, key := range applied {
			_ = os.Unsetenv(key)
		}
	}()

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, raw := range keys {
		key := strings.ToUpper(raw)
		if !known[key] {
			return nil, fmt.Errorf("config file %s: unknown setting %q", path, raw)
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		value, err := settingString(values[raw])
		if err != nil {
			return nil, fmt.Errorf("config file %s: %s: %w", path, raw, err)
		}
		if err := os.Setenv(key, value); err != nil {
			return nil, err
		}
		applied = append(applied, key)
	}

	return Load()
}

func readSettings(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	values := map[string]interface{}{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &values)
	case ".toml":
		err = toml.Unmarshal(data, &values)
	default:
		return nil, fmt.Errorf("config file %s: unsupported format, want .yaml, .yml or .toml", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return values, nil
}

// settingString renders a decoded value the way envconfig expects it
func settingString(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, err := settingString(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	case map[string]interface{}:
		return "", fmt.Errorf("nested tables are not supported")
	default:
		return fmt.Sprint(val), nil
	}
}

// knownKeys collects the envconfig names of every field under t
func knownKeys(t reflect.Type) map[string]bool {
	keys := map[string]bool{}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() == t.PkgPath() {
			for key := range knownKeys(field.Type) {
				keys[key] = true
			}
			continue
		}
		if name := field.Tag.Get("envconfig"); name != "" {
			keys[name] = true
		}
	}
	return keys
}
