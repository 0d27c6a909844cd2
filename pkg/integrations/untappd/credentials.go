package untappd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

const credentialsFileMode = 0o600

type storedCredentials struct {
	Token    string          `json:"token"`
	UserInfo json.RawMessage `json:"user_info"`
}

// loadCredentials reads the username keyed credentials file. A missing file
// is an empty set of credentials.
func loadCredentials(path string) (map[string]storedCredentials, error) {
	creds := map[string]storedCredentials{}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return creds, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading credentials %s: %w", path, err)
	}

	if err = json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decoding credentials %s: %w", path, err)
	}

	return creds, nil
}

// saveCredentials merges one user's entry into the credentials file, keeping
// the entries of other users.
func saveCredentials(path string, username string, entry storedCredentials) error {
	creds, err := loadCredentials(path)
	if err != nil {
		return err
	}

	creds[username] = entry

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".creds-*")
	if err != nil {
		return fmt.Errorf("writing credentials %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()

		return fmt.Errorf("writing credentials %s: %w", path, err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("writing credentials %s: %w", path, err)
	}

	if err = os.Chmod(tmp.Name(), credentialsFileMode); err != nil {
		return fmt.Errorf("writing credentials %s: %w", path, err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing credentials %s: %w", path, err)
	}

	return nil
}
