//go:build !darwin

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

func defaultDataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func configFilePath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "config.json")
}

// fileBackend keeps settings as one flat JSON object keyed by the dotted
// config key, e.g. {"server.port": 4100, "server.mcp_enabled": true}.
type fileBackend struct {
	path string
	data map[string]any
}

func newPlatformBackend() ConfigBackend {
	return newFileBackend(configFilePath())
}

// newFileBackend loads path if it exists. An unreadable or malformed file is
// logged and treated as empty so the defaults still apply.
func newFileBackend(path string) *fileBackend {
	b := &fileBackend{path: path, data: make(map[string]any)}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		slog.Warn("could not read config file, using defaults", "path", path, "error", err)
	default:
		if err := json.Unmarshal(raw, &b.data); err != nil {
			slog.Warn("could not parse config file, using defaults", "path", path, "error", err)
			b.data = make(map[string]any)
		}
	}
	return b
}

func (b *fileBackend) save() error {
	out, err := json.MarshalIndent(b.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return writeFileAtomic(b.path, out, 0o600)
}

func (b *fileBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	if s, ok := v.(string); ok {
		return s, true, nil
	}
	return fmt.Sprint(v), true, nil
}

func (b *fileBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	switch val := v.(type) {
	case float64:
		if val < math.MinInt || val > math.MaxInt || val != math.Trunc(val) {
			return 0, true, fmt.Errorf("value %v for %s is not an integer in range", val, key)
		}
		return int(val), true, nil
	case int:
		return val, true, nil
	case string:
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("invalid type %T for %s", v, key)
	}
}

func (b *fileBackend) GetBool(key string) (bool, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return false, false, nil
	}
	switch val := v.(type) {
	case bool:
		return val, true, nil
	case string:
		bv, err := strconv.ParseBool(val)
		if err != nil {
			return false, true, fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		return bv, true, nil
	default:
		return false, true, fmt.Errorf("invalid type %T for %s", v, key)
	}
}

func (b *fileBackend) SetString(key, val string) error {
	b.data[key] = val
	return b.save()
}

func (b *fileBackend) SetInt(key string, val int) error {
	b.data[key] = val
	return b.save()
}

func (b *fileBackend) SetBool(key string, val bool) error {
	b.data[key] = val
	return b.save()
}

func (b *fileBackend) Delete(key string) error {
	delete(b.data, key)
	return b.save()
}
