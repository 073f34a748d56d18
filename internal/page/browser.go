package page

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/irctc-booking-supporter/internal/config"
)

// Browser hands out the tab the automation drives.
type Browser interface {
	// Tab focuses an existing tab on the booking site, or opens the site's
	// search page in a new one, and returns it as a Document.
	Tab(ctx context.Context) (Document, error)
	Close() error
}

// Open starts (or attaches to) a browser with the configured driver.
func Open(ctx context.Context, cfg config.BrowserConfig) (Browser, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "chromedp":
		return openChromedp(ctx, cfg)
	case "rod":
		return openRod(ctx, cfg)
	case "playwright":
		return openPlaywright(ctx, cfg)
	default:
		return nil, fmt.Errorf("page: unknown browser driver %q", cfg.Driver)
	}
}

// onSite reports whether a tab URL belongs to the booking site.
func onSite(url, host string) bool {
	return host != "" && strings.Contains(url, host)
}
