//go:build darwin

package config

import (
	"fmt"
	"os/exec"
)

// keychainGet reads a generic password item from the login keychain.
func keychainGet(service, account string) ([]byte, error) {
	out, err := exec.Command(
		"security", "find-generic-password",
		"-s", service,
		"-a", account,
		"-w",
	).Output()
	if err != nil {
		return nil, fmt.Errorf("keychain item %s/%s: %w", service, account, err)
	}
	return out, nil
}

// keychainSet adds or updates (-U) a generic password item.
func keychainSet(service, account, value string) error {
	if err := exec.Command(
		"security", "add-generic-password",
		"-U",
		"-s", service,
		"-a", account,
		"-w", value,
	).Run(); err != nil {
		return fmt.Errorf("storing keychain item %s/%s: %w", service, account, err)
	}
	return nil
}
