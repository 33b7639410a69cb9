package github

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadTokenFile reads the API token from tokenFile, expanding a leading ~.
// Both the file and its parent directory must be owner-access-only, the
// same rule ssh applies to private keys.
func ReadTokenFile(tokenFile string) (string, error) {
	path, err := expandHome(tokenFile)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("token file %s: %w", path, err)
	}
	if err := checkOwnerOnly(path, info.Mode()); err != nil {
		return "", err
	}

	parent := filepath.Dir(path)
	parentInfo, err := os.Stat(parent)
	if err != nil {
		return "", fmt.Errorf("token file directory %s: %w", parent, err)
	}
	if err := checkOwnerOnly(parent, parentInfo.Mode()); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file %s: %w", path, err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", path)
	}

	return token, nil
}

func checkOwnerOnly(path string, mode os.FileMode) error {
	if perm := mode.Perm(); perm&0077 != 0 {
		return fmt.Errorf("bad permissions %04o on %s, must be owner-access-only (e.g. 0600)",
			perm, path)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
