package mangadex

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/klinge/mangadex-anilist-sync/pkg/config"
)

// ErrRequestFailed indicates a non-2xx response on a data fetch.
var ErrRequestFailed = errors.New("request failed")

const unknownTitle = "Unknown Title"

const (
	// NoProgress is the chapter value recorded for a followed manga with no
	// read chapters.
	NoProgress = "0"
	// ProgressError is the chapter value recorded when a manga's read
	// chapters could not be fetched.
	ProgressError = "Error"
)

// TokenSource supplies a valid bearer token before each authenticated call.
// *auth.Manager satisfies it.
type TokenSource interface {
	EnsureValid() error
	Token() string
}

// Manga is a followed title as returned by the API.
type Manga struct {
	ID         string `json:"id"`
	Attributes struct {
		Title map[string]string `json:"title"`
	} `json:"attributes"`
}

// DisplayTitle returns the English title, or a placeholder when the API has
// no English translation for it.
func (m *Manga) DisplayTitle() string {
	if title := m.Attributes.Title["en"]; title != "" {
		return title
	}
	return unknownTitle
}

// Client talks to the authenticated MangaDex endpoints for the user's library.
type Client struct {
	api     *http.Client
	baseURL string
	tokens  TokenSource
	logger  *slog.Logger
}

// New creates a Client against the configured API base URL.
func New(cfg *config.Config, tokens TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:     &http.Client{Timeout: 30 * time.Second},
		baseURL: cfg.BaseURL,
		tokens:  tokens,
		logger:  logger,
	}
}

// get issues an authenticated GET and decodes the JSON body into v.
func (c *Client) get(path string, v any) error {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s%s", c.baseURL, path), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.tokens.Token())

	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned status %d: %s", ErrRequestFailed, path, resp.StatusCode, body)
	}
	return json.Unmarshal(body, v)
}

// FollowedManga fetches the list of manga the user follows. Single page; the
// API's pagination is not walked.
func (c *Client) FollowedManga() ([]Manga, error) {
	if err := c.tokens.EnsureValid(); err != nil {
		return nil, err
	}

	var out struct {
		Data []Manga `json:"data"`
	}
	if err := c.get("/user/follows/manga", &out); err != nil {
		return nil, fmt.Errorf("failed to fetch followed manga: %w", err)
	}

	c.logger.Info("fetched followed manga", "count", len(out.Data))
	return out.Data, nil
}

// ReadChapters fetches the read chapter identifiers for one manga, in the
// order the API returns them. Identifiers are opaque strings, not guaranteed
// numeric.
func (c *Client) ReadChapters(mangaID string) ([]string, error) {
	if err := c.tokens.EnsureValid(); err != nil {
		return nil, err
	}

	var out struct {
		Data []struct {
			Chapter string `json:"chapter"`
		} `json:"data"`
	}
	if err := c.get(fmt.Sprintf("/manga/%s/read", mangaID), &out); err != nil {
		return nil, fmt.Errorf("failed to fetch read chapters for %s: %w", mangaID, err)
	}

	chapters := make([]string, len(out.Data))
	for i, entry := range out.Data {
		chapters[i] = entry.Chapter
	}
	c.logger.Debug("fetched read chapters", "manga_id", mangaID, "count", len(chapters))
	return chapters, nil
}

// ReadingProgress builds the title -> latest-read-chapter map for every
// followed manga, in list order, one manga at a time. A manga whose chapters
// cannot be fetched is recorded as ProgressError and never aborts the batch;
// a failure to fetch the followed list itself is returned.
func (c *Client) ReadingProgress() (map[string]string, error) {
	followed, err := c.FollowedManga()
	if err != nil {
		return nil, err
	}

	progress := make(map[string]string, len(followed))
	for i, manga := range followed {
		title := manga.DisplayTitle()
		c.logger.Info("processing manga", "position", fmt.Sprintf("%d/%d", i+1, len(followed)), "title", title)

		chapters, err := c.ReadChapters(manga.ID)
		if err != nil {
			c.logger.Error("failed to process manga", "title", title, "error", err)
			progress[title] = ProgressError
			continue
		}
		progress[title] = latestChapter(chapters)
	}

	c.logger.Info("completed reading progress", "count", len(progress))
	return progress, nil
}

// latestChapter picks the highest chapter identifier by plain string
// comparison, NoProgress when the list is empty. Identifiers are opaque, so
// no numeric parsing happens here; "9" outranks "10".
func latestChapter(chapters []string) string {
	if len(chapters) == 0 {
		return NoProgress
	}
	latest := chapters[0]
	for _, ch := range chapters[1:] {
		if ch > latest {
			latest = ch
		}
	}
	return latest
}
