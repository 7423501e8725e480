package sheet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCredentialsFromEnv(t *testing.T) {
	t.Setenv("TEST_CREDS", `{"type":"service_account"}`)

	data, err := LoadCredentials("TEST_CREDS", "does-not-exist.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(data) != `{"type":"service_account"}` {
		t.Fatalf("data = %s", data)
	}
}

func TestLoadCredentialsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	data, err := LoadCredentials("TEST_CREDS_UNSET", path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected file contents")
	}
}

func TestLoadCredentialsMissingBoth(t *testing.T) {
	_, err := LoadCredentials("TEST_CREDS_UNSET", filepath.Join(t.TempDir(), "nope.json"))
	var missing ErrNoCredentials
	if !errors.As(err, &missing) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestLoadCredentialsRejectsMalformedEnv(t *testing.T) {
	t.Setenv("TEST_CREDS", "not json at all")
	if _, err := LoadCredentials("TEST_CREDS", "does-not-exist.json"); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}
