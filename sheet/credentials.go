package sheet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrNoCredentials reports that neither the credentials environment variable
// nor the local credentials file is available. This is a fatal configuration
// error: the run aborts before any product is processed.
type ErrNoCredentials struct {
	Env  string
	File string
}

func (e ErrNoCredentials) Error() string {
	return fmt.Sprintf("no credentials: %s is unset and %s does not exist", e.Env, e.File)
}

// LoadCredentials returns the service-account credentials JSON, preferring
// the environment variable over the local file.
func LoadCredentials(env, file string) ([]byte, error) {
	if raw, ok := os.LookupEnv(env); ok && raw != "" {
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("%s does not contain valid JSON", env)
		}
		return []byte(raw), nil
	}

	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoCredentials{Env: env, File: file}
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s does not contain valid JSON", file)
	}
	return data, nil
}
