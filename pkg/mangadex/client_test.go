package mangadex

// Uses a mock HTTP server to avoid making real network requests.

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubTokens is a TokenSource whose behaviour the tests control.
type stubTokens struct {
	token       string
	ensureErr   error
	ensureCalls int
}

func (s *stubTokens) EnsureValid() error {
	s.ensureCalls++
	return s.ensureErr
}

func (s *stubTokens) Token() string {
	return s.token
}

func newTestClient(baseURL string, tokens *stubTokens) *Client {
	return &Client{
		api:     &http.Client{Timeout: 20 * time.Second},
		baseURL: baseURL,
		tokens:  tokens,
		logger:  discardLogger(),
	}
}

// setupTestServer mocks the followed-manga and read-chapters endpoints.
func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/user/follows/manga", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"id":"a","attributes":{"title":{"en":"Foo"}}},{"id":"b","attributes":{"title":{"en":"Bar"}}}]}`)
	})

	mux.HandleFunc("/manga/a/read", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"chapter":"1"},{"chapter":"2"},{"chapter":"10"}]}`)
	})

	mux.HandleFunc("/manga/b/read", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	mux.HandleFunc("/manga/empty/read", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[]}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFollowedManga(t *testing.T) {
	server := setupTestServer(t)
	tokens := &stubTokens{token: "test-token"}
	c := newTestClient(server.URL, tokens)

	followed, err := c.FollowedManga()
	assert.NoError(t, err)
	assert.Len(t, followed, 2)
	assert.Equal(t, "a", followed[0].ID)
	assert.Equal(t, "Foo", followed[0].DisplayTitle())
	assert.Equal(t, 1, tokens.ensureCalls, "token must be validated before the request")
}

func TestFollowedMangaRequestFailure(t *testing.T) {
	server := setupTestServer(t)
	tokens := &stubTokens{token: "wrong-token"}
	c := newTestClient(server.URL, tokens)

	_, err := c.FollowedManga()
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestFollowedMangaTokenFailurePropagates(t *testing.T) {
	server := setupTestServer(t)
	tokens := &stubTokens{ensureErr: errors.New("auth is down")}
	c := newTestClient(server.URL, tokens)

	_, err := c.FollowedManga()
	assert.ErrorContains(t, err, "auth is down")
}

func TestDisplayTitleFallback(t *testing.T) {
	var m Manga
	m.ID = "x"
	assert.Equal(t, "Unknown Title", m.DisplayTitle())

	m.Attributes.Title = map[string]string{"ja": "何か"}
	assert.Equal(t, "Unknown Title", m.DisplayTitle())

	m.Attributes.Title["en"] = "Something"
	assert.Equal(t, "Something", m.DisplayTitle())
}

func TestReadChapters(t *testing.T) {
	server := setupTestServer(t)
	tokens := &stubTokens{token: "test-token"}
	c := newTestClient(server.URL, tokens)

	chapters, err := c.ReadChapters("a")
	assert.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "10"}, chapters)
}

func TestReadChaptersRequestFailure(t *testing.T) {
	server := setupTestServer(t)
	tokens := &stubTokens{token: "test-token"}
	c := newTestClient(server.URL, tokens)

	_, err := c.ReadChapters("b")
	assert.ErrorIs(t, err, ErrRequestFailed)
}

// Chapter identifiers are compared as plain strings: "10" sorts below "2".
// This is load-bearing behaviour; do not "fix" it to numeric ordering without
// a migration plan for existing progress data.
func TestReadingProgressLexicographicMax(t *testing.T) {
	server := setupTestServer(t)
	tokens := &stubTokens{token: "test-token"}
	c := newTestClient(server.URL, tokens)

	progress, err := c.ReadingProgress()
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Foo": "2",     // lexicographic max of 1, 2, 10
		"Bar": "Error", // chapter fetch failed, batch continues
	}, progress)
}

func TestReadingProgressEmptyChapterList(t *testing.T) {
	server := setupTestServer(t)
	tokens := &stubTokens{token: "test-token"}
	c := newTestClient(server.URL, tokens)

	chapters, err := c.ReadChapters("empty")
	assert.NoError(t, err)
	assert.Empty(t, chapters)
	assert.Equal(t, NoProgress, latestChapter(chapters))
}

func TestReadingProgressFollowedFailureAborts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/follows/manga", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(server.URL, &stubTokens{token: "test-token"})

	_, err := c.ReadingProgress()
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestLatestChapter(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "0", latestChapter(nil))
	})
	t.Run("single", func(t *testing.T) {
		assert.Equal(t, "5", latestChapter([]string{"5"}))
	})
	t.Run("string ordering", func(t *testing.T) {
		assert.Equal(t, "9", latestChapter([]string{"9", "10", "11"}))
	})
	t.Run("non-numeric identifiers", func(t *testing.T) {
		assert.Equal(t, "Oneshot", latestChapter([]string{"1", "Oneshot"}))
	})
}
