// internal/surface/browser.go
package surface

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// BrowserOptions controls the Chrome instance used by the render command.
type BrowserOptions struct {
	Headless bool
	PageURL  string
	// WaitSelector is waited for after navigation.
	WaitSelector string
}

// allocatorOptions translates BrowserOptions into chromedp allocator options.
func allocatorOptions(o BrowserOptions) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if !o.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	return opts
}

// OpenPage launches a browser, navigates to the page and waits for the scroll
// container. The returned cancel function closes the tab and the browser.
func OpenPage(ctx context.Context, o BrowserOptions) (context.Context, context.CancelFunc, error) {
	if o.PageURL == "" {
		return nil, nil, fmt.Errorf("page URL is required")
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(o)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	actions := []chromedp.Action{chromedp.Navigate(o.PageURL)}
	if o.WaitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(o.WaitSelector, chromedp.ByQuery))
	}
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to open %s: %w", o.PageURL, err)
	}
	return tabCtx, cancel, nil
}
