package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/bulktube/bulktube/internal/tokenfile"
)

func writeClientSecrets(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "client_secrets.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadCredentials_Installed(t *testing.T) {
	path := writeClientSecrets(t, `{"installed":{"client_id":"id-1","client_secret":"sec-1"}}`)

	cfg, err := LoadCredentials(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "id-1", cfg.ClientID)
	assert.Equal(t, "sec-1", cfg.ClientSecret)
	assert.Equal(t, DefaultScopes, cfg.Scopes)
}

func TestLoadCredentials_Web(t *testing.T) {
	path := writeClientSecrets(t, `{"web":{"client_id":"id-2","client_secret":"sec-2"}}`)

	cfg, err := LoadCredentials(path, []string{"scope-a"})
	require.NoError(t, err)
	assert.Equal(t, "id-2", cfg.ClientID)
	assert.Equal(t, []string{"scope-a"}, cfg.Scopes)
}

func TestLoadCredentials_MissingSection(t *testing.T) {
	path := writeClientSecrets(t, `{"other":{}}`)

	_, err := LoadCredentials(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing installed/web section")
}

func TestLoadCredentials_NoFile(t *testing.T) {
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "nope.json"), nil)
	require.Error(t, err)
}

func TestTokenSourceFromPath_NoFile(t *testing.T) {
	cfg := &oauth2.Config{}

	_, err := TokenSourceFromPath(context.Background(), cfg, filepath.Join(t.TempDir(), "token.json"), testLogger())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestTokenSourceFromPath_ValidToken(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token.json")

	tok := &oauth2.Token{
		AccessToken: "saved-access",
		Expiry:      time.Now().Add(time.Hour),
	}
	require.NoError(t, tokenfile.Save(tokenPath, tok, nil))

	src, err := TokenSourceFromPath(context.Background(), &oauth2.Config{}, tokenPath, testLogger())
	require.NoError(t, err)

	access, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "saved-access", access)
}

func TestLogout(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(tokenPath, []byte(`{}`), 0o600))

	require.NoError(t, Logout(tokenPath, testLogger()))
	assert.NoFileExists(t, tokenPath)

	// Logging out twice is fine.
	require.NoError(t, Logout(tokenPath, testLogger()))
}

// staticOAuthSource hands out a fixed oauth2 token.
type staticOAuthSource struct {
	tok *oauth2.Token
}

func (s *staticOAuthSource) Token() (*oauth2.Token, error) {
	return s.tok, nil
}

func TestPersistingSource_SavesOnRefresh(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token.json")

	inner := &staticOAuthSource{tok: &oauth2.Token{AccessToken: "v1", Expiry: time.Now().Add(time.Hour)}}
	src := newPersistingSource(inner, tokenPath, map[string]string{"channel_title": "My Channel"}, testLogger())

	access, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "v1", access)

	// First acquisition persists.
	saved, meta, err := tokenfile.Load(tokenPath)
	require.NoError(t, err)
	assert.Equal(t, "v1", saved.AccessToken)
	assert.Equal(t, "My Channel", meta["channel_title"])

	// Unchanged token does not rewrite the file.
	info1, err := os.Stat(tokenPath)
	require.NoError(t, err)

	_, err = src.Token()
	require.NoError(t, err)

	info2, err := os.Stat(tokenPath)
	require.NoError(t, err)
	assert.Equal(t, info1.ModTime(), info2.ModTime())

	// A refreshed access token is persisted.
	inner.tok = &oauth2.Token{AccessToken: "v2", Expiry: time.Now().Add(2 * time.Hour)}

	_, err = src.Token()
	require.NoError(t, err)

	saved, _, err = tokenfile.Load(tokenPath)
	require.NoError(t, err)
	assert.Equal(t, "v2", saved.AccessToken)
}

func TestGenerateState(t *testing.T) {
	a, err := generateState()
	require.NoError(t, err)

	b, err := generateState()
	require.NoError(t, err)

	assert.Len(t, a, stateTokenBytes*2)
	assert.NotEqual(t, a, b)
}

func TestLogin_Success(t *testing.T) {
	// Fake token endpoint for the code exchange.
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "fake-code", r.FormValue("code"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"exchanged-token","token_type":"Bearer","expires_in":3600,"refresh_token":"refresh-1"}`))
	}))
	defer tokenSrv.Close()

	cfg := &oauth2.Config{
		ClientID: "id-1",
		Endpoint: oauth2.Endpoint{
			AuthURL:  tokenSrv.URL + "/auth",
			TokenURL: tokenSrv.URL + "/token",
		},
	}

	tokenPath := filepath.Join(t.TempDir(), "token.json")

	// openURL plays the part of the browser: it parses the redirect URI and
	// state out of the auth URL and calls the callback.
	openURL := func(authURL string) error {
		parsed, err := url.Parse(authURL)
		if err != nil {
			return err
		}

		redirect := parsed.Query().Get("redirect_uri")
		state := parsed.Query().Get("state")

		go func() {
			resp, getErr := http.Get(redirect + "?state=" + url.QueryEscape(state) + "&code=fake-code")
			if getErr == nil {
				resp.Body.Close()
			}
		}()

		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	src, err := Login(ctx, cfg, tokenPath, openURL, testLogger())
	require.NoError(t, err)

	access, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "exchanged-token", access)

	saved, _, err := tokenfile.Load(tokenPath)
	require.NoError(t, err)
	assert.Equal(t, "exchanged-token", saved.AccessToken)
	assert.Equal(t, "refresh-1", saved.RefreshToken)
}

func TestLogin_UserDenied(t *testing.T) {
	cfg := &oauth2.Config{
		ClientID: "id-1",
		Endpoint: oauth2.Endpoint{AuthURL: "http://unused/auth", TokenURL: "http://unused/token"},
	}

	openURL := func(authURL string) error {
		parsed, err := url.Parse(authURL)
		if err != nil {
			return err
		}

		redirect := parsed.Query().Get("redirect_uri")
		state := parsed.Query().Get("state")

		go func() {
			resp, getErr := http.Get(redirect + "?state=" + url.QueryEscape(state) + "&error=access_denied")
			if getErr == nil {
				resp.Body.Close()
			}
		}()

		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := Login(ctx, cfg, filepath.Join(t.TempDir(), "token.json"), openURL, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_denied")
}

func TestLogin_ContextCancel(t *testing.T) {
	cfg := &oauth2.Config{
		ClientID: "id-1",
		Endpoint: oauth2.Endpoint{AuthURL: "http://unused/auth", TokenURL: "http://unused/token"},
	}

	ctx, cancel := context.WithCancel(context.Background())

	openURL := func(string) error {
		cancel()
		return nil
	}

	_, err := Login(ctx, cfg, filepath.Join(t.TempDir(), "token.json"), openURL, testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
