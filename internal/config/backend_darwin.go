//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// defaultsDomain is the UserDefaults domain holding jobtrack settings.
const defaultsDomain = "com.jobtrack.app"

func defaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, "Library", "Application Support", "jobtrack")
	}
	return "jobtrack-data"
}

// defaultsBackend reads and writes through the `defaults` CLI.
type defaultsBackend struct {
	domain string
}

func newPlatformBackend() ConfigBackend {
	return &defaultsBackend{domain: defaultsDomain}
}

func (b *defaultsBackend) read(key string) (string, bool, error) {
	out, err := exec.Command("defaults", "read", b.domain, key).CombinedOutput()
	s := strings.TrimSpace(string(out))
	if err != nil {
		// defaults exits 1 when the domain or key does not exist.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("defaults read %s %s: %w (%s)", b.domain, key, err, s)
	}
	return s, true, nil
}

func (b *defaultsBackend) write(key, kind, val string) error {
	if out, err := exec.Command("defaults", "write", b.domain, key, kind, val).CombinedOutput(); err != nil {
		return fmt.Errorf("defaults write %s %s: %w (%s)", b.domain, key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (b *defaultsBackend) GetString(key string) (string, bool, error) {
	return b.read(key)
}

func (b *defaultsBackend) GetInt(key string) (int, bool, error) {
	s, ok, err := b.read(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return i, true, nil
}

// GetBool accepts both the "1"/"0" that -bool values read back as and
// strings written by hand.
func (b *defaultsBackend) GetBool(key string) (bool, bool, error) {
	s, ok, err := b.read(key)
	if !ok || err != nil {
		return false, ok, err
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, true, fmt.Errorf("invalid boolean for %s: %w", key, err)
	}
	return v, true, nil
}

func (b *defaultsBackend) SetString(key, val string) error {
	return b.write(key, "-string", val)
}

func (b *defaultsBackend) SetInt(key string, val int) error {
	return b.write(key, "-int", strconv.Itoa(val))
}

func (b *defaultsBackend) SetBool(key string, val bool) error {
	return b.write(key, "-bool", strconv.FormatBool(val))
}

func (b *defaultsBackend) Delete(key string) error {
	return exec.Command("defaults", "delete", b.domain, key).Run()
}
