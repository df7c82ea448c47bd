package showroom

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// BrowserFetcher loads report pages in headless Chrome. It is an
// alternative to HTTPFetcher for when the report only renders after
// client-side scripts have run.
type BrowserFetcher struct {
	cookies []*http.Cookie
	timeout time.Duration

	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	browserCtx  context.Context
	cancelBrw   context.CancelFunc
	started     bool
}

// NewBrowserFetcher starts a headless browser. Close must be called to
// shut it down.
func NewBrowserFetcher(cookies []*http.Cookie, timeout time.Duration, chromeBin string) *BrowserFetcher {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if bin := findChromeBinary(chromeBin); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrw := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &BrowserFetcher{
		cookies:     cookies,
		timeout:     timeout,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		browserCtx:  browserCtx,
		cancelBrw:   cancelBrw,
	}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	if !f.started {
		// The first Run on the browser context launches the process that
		// every page tab then shares.
		if err := chromedp.Run(f.browserCtx); err != nil {
			return nil, fmt.Errorf("browser: start: %w", err)
		}
		f.started = true
	}

	tabCtx, cancel := chromedp.NewContext(f.browserCtx)
	defer cancel()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.timeout)
	defer cancelTimeout()

	// Tie the tab to the caller's context as well.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(tabCtx, network.Enable(), f.setCookies(u.Hostname())); err != nil {
		return nil, fmt.Errorf("browser: set cookies: %w", err)
	}

	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(pageURL))
	if err != nil {
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if resp != nil && (resp.Status < 200 || resp.Status > 299) {
		return nil, &StatusError{URL: pageURL, Code: int(resp.Status)}
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("browser: read document: %w", err)
	}
	return []byte(html), nil
}

func (f *BrowserFetcher) setCookies(domain string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range f.cookies {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(domain).
				WithPath("/").
				Do(ctx)
			if err != nil {
				return fmt.Errorf("cookie %s: %w", c.Name, err)
			}
		}
		return nil
	})
}

// Close shuts the browser down.
func (f *BrowserFetcher) Close() error {
	f.cancelBrw()
	f.cancelAlloc()
	return nil
}

// findChromeBinary locates Chrome/Chromium, preferring an explicit path.
func findChromeBinary(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
