package proofcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Result is the snapshot recorded alongside a submitted proof URL.
type Result struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Checker fetches receiver-submitted proof URLs and confirms they resolve.
// It does not judge the content; human verification does that. The fetched
// title goes into the escrow's audit trail.
type Checker struct {
	httpClient *http.Client
	log        *zap.Logger
	maxRetries int
}

func NewChecker(timeoutMS, maxRetries int, log *zap.Logger) *Checker {
	return &Checker{
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutMS) * time.Millisecond,
		},
		log:        log,
		maxRetries: maxRetries,
	}
}

// Check validates the URL shape, fetches it with retries, and returns the
// page snapshot. A URL that cannot be fetched is a validation failure for the
// proof submission.
func (c *Checker) Check(ctx context.Context, proofURL string) (*Result, error) {
	if err := ValidateURL(proofURL); err != nil {
		return nil, err
	}

	var doc *goquery.Document
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, proofURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "GiftMomentsProofBot/1.0")
		req.Header.Set("Accept-Language", "tr-TR,tr;q=0.9,en;q=0.8")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, proofURL)
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
			continue
		}

		doc, err = goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		break
	}

	if lastErr != nil {
		return nil, fmt.Errorf("proof url unreachable: %w", lastErr)
	}

	return &Result{
		URL:       proofURL,
		Title:     ExtractTitle(doc),
		FetchedAt: time.Now(),
	}, nil
}

// ValidateURL accepts only absolute http(s) URLs with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid proof url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("proof url must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("proof url missing host")
	}
	return nil
}

// ExtractTitle prefers og:title, falls back to <title>, trimmed to 200 runes.
func ExtractTitle(doc *goquery.Document) string {
	title, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	runes := []rune(title)
	if len(runes) > 200 {
		title = string(runes[:200])
	}
	return title
}
