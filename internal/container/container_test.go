package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wimboro/gmail-wa/internal/config"
)

const fakeCredentials = `{
  "installed": {
    "client_id": "test-client.apps.googleusercontent.com",
    "client_secret": "test-secret",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["http://localhost"]
  }
}`

const fakeToken = `{
  "access_token": "test-access",
  "refresh_token": "test-refresh",
  "token_type": "Bearer",
  "expiry": "2030-01-01T00:00:00Z"
}`

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.Log.Level = "error"
	cfg.Log.Format = "text"
	cfg.Poll.IntervalMinutes = 15
	cfg.Poll.Query = "is:unread"
	cfg.Poll.FetchWidth = 2
	cfg.Gmail.CredentialsFile = writeFixture(t, dir, "credentials.json", fakeCredentials)
	cfg.Gmail.ProcessedLabel = "gmail-wa/processed"
	cfg.Gmail.Accounts = []config.AccountConfig{
		{ID: "wimboro", TokenFile: writeFixture(t, dir, "token.json", fakeToken)},
	}
	cfg.AI.Model = "gemini-1.5-flash"
	cfg.AI.TimeoutSeconds = 45
	cfg.Ledger.Backend = "sqlite"
	cfg.Ledger.SQLitePath = filepath.Join(dir, "ledger.db")
	cfg.Notify.Threshold = 5
	cfg.Notify.SessionDB = filepath.Join(dir, "session.db")
	cfg.Notify.TimeoutSeconds = 10
	return cfg
}

func TestNewContainer(t *testing.T) {
	cfg := testConfig(t)

	c, err := NewContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Logger())
	assert.NotNil(t, c.Orchestrator())
	assert.Same(t, cfg, c.Config())
}

func TestNewContainer_NilConfig(t *testing.T) {
	_, err := NewContainer(context.Background(), nil)
	require.Error(t, err)
}

func TestNewContainer_NoAccounts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Gmail.Accounts = nil

	_, err := NewContainer(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gmail.accounts")
}

func TestNewContainer_SheetsRequiresSpreadsheet(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger.Backend = "sheets"
	cfg.Ledger.SpreadsheetID = ""

	_, err := NewContainer(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger.spreadsheet_id")
}

func TestNewContainer_BrokenAccountIsSkipped(t *testing.T) {
	// One account with an unreadable token file must not keep the
	// remaining accounts from running.
	cfg := testConfig(t)
	cfg.Gmail.Accounts = append(cfg.Gmail.Accounts, config.AccountConfig{
		ID:        "fara",
		TokenFile: filepath.Join(t.TempDir(), "missing-token.json"),
	})

	c, err := NewContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()
	assert.NotNil(t, c.Orchestrator())
}

func TestNewContainer_NoUsableAccount(t *testing.T) {
	// Credentials unreadable for every account: nothing can run, so
	// startup fails.
	cfg := testConfig(t)
	cfg.Gmail.CredentialsFile = filepath.Join(t.TempDir(), "missing.json")

	_, err := NewContainer(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gmail.accounts")
}
