//go:build !darwin

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

func secretsFilePath() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), "secrets.json")
}

// secretsFile stores secrets as {"service": {"account": "value"}} in a file
// only the owning user can read.
type secretsFile struct {
	path string
}

func (f secretsFile) read() (map[string]map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(raw, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file %s: %w", f.path, err)
	}
	return secrets, nil
}

func (f secretsFile) get(service, account string) (string, error) {
	secrets, err := f.read()
	if err != nil {
		return "", fmt.Errorf("secret store not available: %w", err)
	}
	val, ok := secrets[service][account]
	if !ok {
		return "", fmt.Errorf("no secret %s/%s", service, account)
	}
	return val, nil
}

// set rewrites the whole file. A missing file starts empty; a corrupt one is
// an error so existing secrets are never silently dropped.
func (f secretsFile) set(service, account, value string) error {
	secrets, err := f.read()
	if errors.Is(err, fs.ErrNotExist) {
		secrets, err = nil, nil
	}
	if err != nil {
		return err
	}
	if secrets == nil {
		secrets = make(map[string]map[string]string)
	}
	if secrets[service] == nil {
		secrets[service] = make(map[string]string)
	}
	secrets[service][account] = value

	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding secrets: %w", err)
	}
	return writeFileAtomic(f.path, out, 0o600)
}

func keychainGet(service, account string) ([]byte, error) {
	v, err := secretsFile{path: secretsFilePath()}.get(service, account)
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

func keychainSet(service, account, value string) error {
	return secretsFile{path: secretsFilePath()}.set(service, account, value)
}
