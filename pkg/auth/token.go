package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klinge/mangadex-anilist-sync/pkg/config"
)

var (
	// ErrAuthFailed indicates the password grant was rejected. There is no
	// recovery path; callers give up.
	ErrAuthFailed = errors.New("authorization failed")
	// ErrRefreshFailed indicates the refresh grant was rejected. EnsureValid
	// recovers by falling back to a full authorization.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// Tokens within this window of their nominal expiry are renewed before use,
// so a request never goes out with a token that can expire mid-flight.
const expirySkew = 60 * time.Second

// TokenPair is the token endpoint's response to either grant.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds until expiry
}

// State describes what the manager can do with its current tokens.
type State int

const (
	// StateNoToken means a full password grant is required.
	StateNoToken State = iota
	// StateValid means the access token can be used as-is.
	StateValid
	// StateExpired means the access token is stale or missing but a refresh
	// token is available.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateExpired:
		return "expired"
	default:
		return "no-token"
	}
}

// Manager owns the OAuth2 token lifecycle for the MangaDex API: it decides
// when a token is stale, runs the cheapest grant that fixes it, and persists
// the result through the settings store.
type Manager struct {
	username     string
	password     string
	clientID     string
	clientSecret string

	tokenURL string
	client   *http.Client
	store    config.Store
	logger   *slog.Logger

	accessToken  string
	refreshToken string
	expiresAt    time.Time

	now func() time.Time
}

// New builds a Manager from the startup config and loads any previously
// persisted tokens from the store.
func New(cfg *config.Config, store config.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		username:     cfg.Username,
		password:     cfg.Password,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokenURL:     cfg.AuthURL,
		client:       &http.Client{Timeout: 30 * time.Second},
		store:        store,
		logger:       logger,
		now:          time.Now,
	}
	m.loadPersisted()
	return m
}

// loadPersisted restores token state from the settings store. An access token
// without a parseable expiry is discarded: the manager never holds an access
// token whose expiry it does not know.
func (m *Manager) loadPersisted() {
	m.refreshToken = m.store.Get(config.KeyRefreshToken)

	access := m.store.Get(config.KeyAccessToken)
	expiry := m.store.Get(config.KeyTokenExpiry)
	if access == "" || expiry == "" {
		return
	}
	// Older versions of the tool wrote the expiry as a float, so parse
	// generously.
	secs, err := strconv.ParseFloat(expiry, 64)
	if err != nil {
		m.logger.Warn("discarding persisted access token with unreadable expiry", "expiry", expiry)
		return
	}
	m.accessToken = access
	m.expiresAt = time.Unix(int64(secs), 0)
	m.logger.Debug("loaded persisted token", "expires_at", m.expiresAt)
}

// State reports the current token state.
func (m *Manager) State() State {
	if m.accessToken != "" && m.now().Before(m.expiresAt.Add(-expirySkew)) {
		return StateValid
	}
	if m.refreshToken != "" {
		return StateExpired
	}
	return StateNoToken
}

// Token returns the current access token. Only meaningful after a successful
// EnsureValid.
func (m *Manager) Token() string {
	return m.accessToken
}

// EnsureValid guarantees a usable access token, taking the cheapest path:
// reuse, then refresh, then full authorization. A failed refresh falls back to
// full authorization once; a failed authorization is propagated.
func (m *Manager) EnsureValid() error {
	switch m.State() {
	case StateValid:
		m.logger.Debug("using existing valid token")
		return nil
	case StateExpired:
		if err := m.refresh(); err != nil {
			m.logger.Warn("token refresh failed, falling back to full authorization", "error", err)
			return m.Authorize()
		}
		return nil
	default:
		m.logger.Info("no refresh token available, performing full authorization")
		return m.Authorize()
	}
}

// Authorize runs the password grant unconditionally and persists the result.
func (m *Manager) Authorize() error {
	m.logger.Info("authorizing with username and password")
	form := url.Values{
		"grant_type":    {"password"},
		"username":      {m.username},
		"password":      {m.password},
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
	}
	pair, err := m.grant(form)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	m.saveTokens(pair)
	return nil
}

func (m *Manager) refresh() error {
	m.logger.Info("refreshing access token")
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {m.refreshToken},
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
	}
	pair, err := m.grant(form)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	m.saveTokens(pair)
	return nil
}

// grant posts a form to the token endpoint and decodes the token pair.
func (m *Manager) grant(form url.Values) (*TokenPair, error) {
	req, err := http.NewRequest(http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, body)
	}

	var pair TokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if pair.AccessToken == "" {
		return nil, errors.New("token response contained no access token")
	}
	return &pair, nil
}

// saveTokens updates in-memory state and persists it through the store.
// In-memory state is committed first; a failed write to the settings file is
// logged and otherwise ignored, the sync still runs with the fresh token.
func (m *Manager) saveTokens(pair *TokenPair) {
	m.accessToken = pair.AccessToken
	m.refreshToken = pair.RefreshToken
	m.expiresAt = m.now().Add(time.Duration(pair.ExpiresIn) * time.Second)

	m.logger.Info("received new token", "expires_in", pair.ExpiresIn)

	m.store.Set(config.KeyAccessToken, m.accessToken)
	m.store.Set(config.KeyRefreshToken, m.refreshToken)
	m.store.Set(config.KeyTokenExpiry, strconv.FormatInt(m.expiresAt.Unix(), 10))
	if err := m.store.Save(); err != nil {
		m.logger.Warn("failed to persist tokens", "error", err)
	}
}
