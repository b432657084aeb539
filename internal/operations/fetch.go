package operations

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rahul/stepwise/internal/plan"
)

const maxContentChars = 50000

// FetchOperation downloads a page and returns its readable text.
type FetchOperation struct {
	Client    *http.Client
	UserAgent string
}

func NewFetch() *FetchOperation {
	return &FetchOperation{
		Client:    &http.Client{Timeout: 30 * time.Second},
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	}
}

func (f *FetchOperation) Name() string { return "Fetch" }

func (f *FetchOperation) Description() string {
	return "Fetches a webpage URL and returns its main content as sanitized text"
}

func (f *FetchOperation) Arity() int { return 1 }

func (f *FetchOperation) Parameters() map[string]any {
	return positional("string", "absolute URL of the page")
}

func (f *FetchOperation) Invoke(ctx context.Context, args []plan.Argument) (plan.Argument, error) {
	if err := checkArity(f.Name(), 1, args); err != nil {
		return nil, err
	}
	raw, err := stringArg(f.Name(), args, 0)
	if err != nil {
		return nil, err
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL %q", raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status code %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse article: %w", err)
	}

	var b strings.Builder
	if article.Title != "" {
		b.WriteString(article.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(sanitize(article.TextContent))
	return truncate(strings.TrimSpace(b.String()), maxContentChars), nil
}

// sanitize strips any markup left in extracted text.
func sanitize(s string) string {
	return bluemonday.StrictPolicy().Sanitize(s)
}

// truncate keeps at most n bytes of s, backing off to a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "\n... (content truncated) ..."
}
