package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appContainer "github.com/allisson/ots/internal/app"
	"github.com/allisson/ots/internal/client"
	"github.com/allisson/ots/internal/config"
)

var linkPattern = regexp.MustCompile(`https?://\S+/s/\S+\?key=[0-9a-f]+`)

// recordingHandler remembers every request URL the server saw.
type recordingHandler struct {
	mu   sync.Mutex
	urls []string
	next http.Handler
}

func (h *recordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.urls = append(h.urls, r.URL.String())
	h.mu.Unlock()
	h.next.ServeHTTP(w, r)
}

func (h *recordingHandler) seen() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return strings.Join(h.urls, "\n")
}

func newTestServer(t *testing.T) (*httptest.Server, *recordingHandler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	cfg := &config.Config{
		DBDriver:                config.DBDriverMemory,
		LogLevel:                "error",
		RateLimitEnabled:        false,
		RateLimitRequestsPerSec: 100,
		RateLimitBurst:          100,
		FieldEncryptionKey:      base64.StdEncoding.EncodeToString(key),
		SecretExpiryMin:         time.Minute,
		SecretExpiryMax:         30 * 24 * time.Hour,
		SecretExpiryDefault:     24 * time.Hour,
		SecretMaxReadsLimit:     100,
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	container := appContainer.NewContainer(cfg)
	server, err := container.HTTPServer(ctx)
	require.NoError(t, err)

	recorder := &recordingHandler{next: server.GetHandler()}
	ts := httptest.NewServer(recorder)
	t.Cleanup(ts.Close)
	return ts, recorder
}

type testApp struct {
	*app
	clipboard string
	password  string
	terminal  bool
}

func newTestApp(serverURL string) *testApp {
	ta := &testApp{}
	ta.app = &app{
		loadConfig: func() *client.Config {
			return &client.Config{ServerURL: serverURL}
		},
		copyToClipboard: func(text string) error {
			ta.clipboard = text
			return nil
		},
		stdinIsTerminal: func() bool { return ta.terminal },
		readPassword: func() (string, error) {
			if ta.password == "" {
				return "", errors.New("no tty")
			}
			return ta.password, nil
		},
	}
	return ta
}

func run(t *testing.T, a *app, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func createLink(t *testing.T, a *app, stdin string, args ...string) string {
	t.Helper()
	out, _, err := run(t, a, stdin, append([]string{"create"}, args...)...)
	require.NoError(t, err)

	link := linkPattern.FindString(out)
	require.NotEmpty(t, link, out)
	return link
}

func TestCreateAndRedeem(t *testing.T) {
	ts, recorder := newTestServer(t)
	ta := newTestApp(ts.URL)

	link := createLink(t, ta.app, "", "--text", "db password")
	assert.Equal(t, link, ta.clipboard)

	out, stderr, err := run(t, ta.app, "", "redeem", link, "--no-clipboard")
	require.NoError(t, err)
	assert.Equal(t, "db password\n", out)
	assert.Contains(t, stderr, "Secret retrieved")

	// the key never reaches the server
	key := link[strings.Index(link, "key=")+len("key="):]
	assert.NotContains(t, recorder.seen(), key)

	_, _, err = run(t, ta.app, "", "redeem", link, "--no-clipboard")
	assert.ErrorIs(t, err, client.ErrSecretNotFound)
}

func TestCreate_FromStdinAndFile(t *testing.T) {
	ts, _ := newTestServer(t)
	ta := newTestApp(ts.URL)

	t.Run("stdin", func(t *testing.T) {
		link := createLink(t, ta.app, "piped secret", "--no-clipboard")
		out, _, err := run(t, ta.app, "", "redeem", link, "-n")
		require.NoError(t, err)
		assert.Equal(t, "piped secret\n", out)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "secret.txt")
		require.NoError(t, os.WriteFile(path, []byte("from a file"), 0o600))

		link := createLink(t, ta.app, "", "--file", path, "--no-clipboard")
		out, _, err := run(t, ta.app, "", "redeem", link, "-n")
		require.NoError(t, err)
		assert.Equal(t, "from a file\n", out)
	})

	t.Run("terminal without input", func(t *testing.T) {
		ta.terminal = true
		defer func() { ta.terminal = false }()

		_, _, err := run(t, ta.app, "", "create", "--no-clipboard")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no input provided")
	})

	t.Run("empty secret", func(t *testing.T) {
		_, _, err := run(t, ta.app, "  \n", "create", "--no-clipboard")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret cannot be empty")
	})
}

func TestCreate_MaxReads(t *testing.T) {
	ts, _ := newTestServer(t)
	ta := newTestApp(ts.URL)

	out, _, err := run(t, ta.app, "", "create", "--text", "shared", "--max-reads", "2", "--no-clipboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Reads left: 2")
	link := linkPattern.FindString(out)

	for i := 0; i < 2; i++ {
		got, _, err := run(t, ta.app, "", "redeem", link, "-n")
		require.NoError(t, err)
		assert.Equal(t, "shared\n", got)
	}

	_, _, err = run(t, ta.app, "", "redeem", link, "-n")
	assert.ErrorIs(t, err, client.ErrSecretNotFound)
}

func TestCreate_InvalidOptions(t *testing.T) {
	ta := newTestApp("http://127.0.0.1:1")

	_, _, err := run(t, ta.app, "", "create", "--text", "x", "--max-reads", "500", "--no-clipboard")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid secret")

	_, _, err = run(t, ta.app, "", "create", "--text", "x", "--burn-after-read", "--max-reads", "2")
	assert.Error(t, err)
}

func TestRedeem_Password(t *testing.T) {
	ts, _ := newTestServer(t)
	ta := newTestApp(ts.URL)

	t.Run("flag", func(t *testing.T) {
		out, _, err := run(t, ta.app, "", "create", "--text", "guarded", "--password", "pw", "--no-clipboard")
		require.NoError(t, err)
		assert.Contains(t, out, "Password:")
		link := linkPattern.FindString(out)

		got, _, err := run(t, ta.app, "", "redeem", link, "--password", "pw", "-n")
		require.NoError(t, err)
		assert.Equal(t, "guarded\n", got)
	})

	t.Run("prompt on terminal", func(t *testing.T) {
		link := createLink(t, ta.app, "", "--text", "prompted", "--password", "pw", "--no-clipboard")

		ta.terminal = true
		ta.password = "pw"
		defer func() { ta.terminal, ta.password = false, "" }()

		got, stderr, err := run(t, ta.app, "", "redeem", link, "-n")
		require.NoError(t, err)
		assert.Equal(t, "prompted\n", got)
		assert.Contains(t, stderr, "Enter password:")
	})

	t.Run("missing without terminal", func(t *testing.T) {
		link := createLink(t, ta.app, "", "--text", "locked", "--password", "pw", "--no-clipboard")

		_, _, err := run(t, ta.app, "", "redeem", link, "-n")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "password required")
	})
}

func TestRedeem_InvalidLink(t *testing.T) {
	ta := newTestApp("http://127.0.0.1:1")

	_, _, err := run(t, ta.app, "", "redeem", "https://example.com/s/abc")
	assert.Error(t, err)

	_, _, err = run(t, ta.app, "", "redeem")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	ts, _ := newTestServer(t)
	ta := newTestApp(ts.URL)

	link := createLink(t, ta.app, "", "--text", "short lived", "--no-clipboard")

	out, _, err := run(t, ta.app, "", "delete", link)
	require.NoError(t, err)
	assert.Contains(t, out, "Secret deleted")

	_, _, err = run(t, ta.app, "", "redeem", link, "-n")
	assert.ErrorIs(t, err, client.ErrSecretNotFound)

	_, _, err = run(t, ta.app, "", "delete", link)
	assert.ErrorIs(t, err, client.ErrSecretNotFound)
}

func TestLinkServerURL(t *testing.T) {
	tests := []struct {
		link string
		id   string
		want string
	}{
		{"https://ots.example.com/s/abc?key=00", "abc", "https://ots.example.com"},
		{"https://example.com/ots/s/abc?key=00", "abc", "https://example.com/ots"},
		{"/s/abc?key=00", "abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			assert.Equal(t, tt.want, linkServerURL(tt.link, tt.id))
		})
	}
}
