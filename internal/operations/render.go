package operations

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rahul/stepwise/internal/plan"
)

// RenderOperation loads a page in headless Chrome and returns the text of
// the rendered body, for pages that only build their content in script.
// The browser is started lazily and kept until Close; every call gets its
// own tab so concurrent calls never navigate each other away.
type RenderOperation struct {
	Timeout time.Duration

	mu            sync.Mutex
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

func NewRender() *RenderOperation {
	return &RenderOperation{Timeout: 60 * time.Second}
}

func (r *RenderOperation) Name() string { return "Render" }

func (r *RenderOperation) Description() string {
	return "Opens a URL in a headless browser and returns the rendered page text"
}

func (r *RenderOperation) Arity() int { return 1 }

func (r *RenderOperation) Parameters() map[string]any {
	return positional("string", "absolute URL of the page")
}

func (r *RenderOperation) Invoke(ctx context.Context, args []plan.Argument) (plan.Argument, error) {
	if err := checkArity(r.Name(), 1, args); err != nil {
		return nil, err
	}
	target, err := stringArg(r.Name(), args, 0)
	if err != nil {
		return nil, err
	}

	browserCtx, err := r.browser()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	// Cancelling a tab context closes the tab, not the browser.
	tabCtx, closeTab := chromedp.NewContext(browserCtx)
	defer closeTab()

	actionCtx, cancel := context.WithTimeout(tabCtx, r.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var text string
	err = chromedp.Run(actionCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Text("body", &text, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", target, err)
	}
	return truncate(sanitize(text), maxContentChars), nil
}

func (r *RenderOperation) browser() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browserCtx != nil {
		select {
		case <-r.browserCtx.Done():
			r.cleanup()
		default:
			return r.browserCtx, nil
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	r.browserCtx, r.browserCancel = chromedp.NewContext(r.allocCtx)

	if err := chromedp.Run(r.browserCtx); err != nil {
		r.cleanup()
		return nil, err
	}
	return r.browserCtx, nil
}

// Close shuts the browser down if it was started.
func (r *RenderOperation) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanup()
}

func (r *RenderOperation) cleanup() {
	if r.browserCancel != nil {
		r.browserCancel()
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}
	r.browserCtx = nil
	r.allocCtx = nil
	r.browserCancel = nil
	r.allocCancel = nil
}
