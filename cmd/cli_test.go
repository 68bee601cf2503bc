package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeSettingsFixture(t *testing.T, home, baseURL string) {
	t.Helper()
	configDir := filepath.Join(home, ".jules")
	require.NoError(t, os.MkdirAll(configDir, 0o700))
	content := fmt.Sprintf("version = 1\n\n[api]\nbase_url = %q\n", baseURL)
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "settings.toml"), []byte(content), 0o600))
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "0.1.0")
}

func TestLoginStoresAndLogoutRemovesKey(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "login", "jls-key-123")
	require.NoError(t, err)
	assert.Contains(t, stdout, "API key stored.")

	keyPath := filepath.Join(home, ".jules", "secrets", "api_key")
	data, err := os.ReadFile(keyPath)
	require.NoError(t, err)
	assert.Equal(t, "jls-key-123", string(data))

	stdout, _, err = executeCLI(t, home, "logout")
	require.NoError(t, err)
	assert.Contains(t, stdout, "API key removed.")
	_, err = os.Stat(keyPath)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoginWithoutKeyFails(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provide the api key")
}

func TestSessionsListRendersAndCaches(t *testing.T) {
	var listCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sessions", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		listCalls.Add(1)
		_, _ = fmt.Fprint(w, `{"sessions":[{"name":"sessions/abc","title":"Fix the parser","state":"IN_PROGRESS","updateTime":"2026-08-30T10:00:00Z"}]}`)
	}))
	defer server.Close()

	home := t.TempDir()
	writeSettingsFixture(t, home, server.URL)
	t.Setenv("JULES_API_KEY", "test-key")

	stdout, stderr, err := executeCLI(t, home, "sessions")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sessions: 1")
	assert.Contains(t, stdout, "Fix the parser")
	assert.Contains(t, stdout, "in_progress")
	assert.Contains(t, stderr, "Fetching sessions")
	assert.Equal(t, int32(1), listCalls.Load())

	// Second run serves the cached listing.
	stdout, _, err = executeCLI(t, home, "sessions")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Fix the parser")
	assert.Equal(t, int32(1), listCalls.Load())

	// --refresh forces the network again.
	_, _, err = executeCLI(t, home, "sessions", "list", "--refresh")
	require.NoError(t, err)
	assert.Equal(t, int32(2), listCalls.Load())
}

func TestSourcesListsConnectedRepos(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sources", r.URL.Path)
		_, _ = fmt.Fprint(w, `{"sources":[{"name":"sources/gh-repo","id":"gh-repo","githubRepo":{"owner":"octo","repo":"widgets"}}]}`)
	}))
	defer server.Close()

	home := t.TempDir()
	writeSettingsFixture(t, home, server.URL)
	t.Setenv("JULES_API_KEY", "test-key")

	stdout, _, err := executeCLI(t, home, "sources")
	require.NoError(t, err)
	assert.Contains(t, stdout, "gh-repo")
	assert.Contains(t, stdout, "octo/widgets")
}

func TestSessionsNewCreatesSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/sessions", r.URL.Path)
		_, _ = fmt.Fprint(w, `{"name":"sessions/new-1","state":"QUEUED","updateTime":"2026-08-30T10:00:00Z"}`)
	}))
	defer server.Close()

	home := t.TempDir()
	writeSettingsFixture(t, home, server.URL)
	t.Setenv("JULES_API_KEY", "test-key")

	stdout, _, err := executeCLI(t, home,
		"sessions", "new", "fix the flaky test",
		"--source", "gh-repo",
		"--title", "Flaky test",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Created new-1 (queued)")
}

func TestSessionsNewRequiresSource(t *testing.T) {
	home := t.TempDir()
	_, _, err := executeCLI(t, home, "sessions", "new", "prompt text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"source\" not set")
}

func TestSendRequiresSessionAndMessage(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "send", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 2 arg(s)")
}

func TestSendPostsMessage(t *testing.T) {
	var sendCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sessions/abc:sendMessage":
			sendCalls.Add(1)
			w.WriteHeader(http.StatusOK)
		case "/sessions/abc/activities":
			_, _ = fmt.Fprint(w, `{"activities":[]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	home := t.TempDir()
	writeSettingsFixture(t, home, server.URL)
	t.Setenv("JULES_API_KEY", "test-key")

	stdout, _, err := executeCLI(t, home, "send", "abc", "please", "continue")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Sent to sessions/abc")
	assert.Equal(t, int32(1), sendCalls.Load())
}

func TestRequestWithoutAPIKeyFailsFast(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	home := t.TempDir()
	writeSettingsFixture(t, home, server.URL)

	_, _, err := executeCLI(t, home, "sources")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not set")
	assert.Zero(t, calls.Load())
}

func TestCacheStatsWorksOffline(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Cache")
	assert.Contains(t, stdout, "entries")
}

func TestCacheClearReportsSuccess(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Cache cleared.")
}

func TestCacheConfigShowsAndPersists(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "cache", "config")
	require.NoError(t, err)
	assert.Contains(t, stdout, "enabled: true")
	assert.Contains(t, stdout, "ttl: 1h0m0s")

	stdout, _, err = executeCLI(t, home, "cache", "config", "--enabled=false", "--ttl", "30m")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Cache settings saved.")
	assert.Contains(t, stdout, "enabled: false")
	assert.Contains(t, stdout, "ttl: 30m0s")

	// A fresh run reads the change back from disk.
	stdout, _, err = executeCLI(t, home, "cache", "config")
	require.NoError(t, err)
	assert.Contains(t, stdout, "enabled: false")
	assert.Contains(t, stdout, "ttl: 30m0s")
}

func TestUnknownCommandFails(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "frobnicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}
