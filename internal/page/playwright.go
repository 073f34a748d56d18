package page

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/iliyamo/irctc-booking-supporter/internal/config"
)

type playwrightBrowser struct {
	cfg     config.BrowserConfig
	pw      *playwright.Playwright
	browser playwright.Browser // set only when attached over CDP
	bctx    playwright.BrowserContext

	mu sync.Mutex
}

func openPlaywright(_ context.Context, cfg config.BrowserConfig) (Browser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("playwright: start driver: %w", err)
	}
	b := &playwrightBrowser{cfg: cfg, pw: pw}
	if cfg.RemoteURL != "" {
		browser, err := pw.Chromium.ConnectOverCDP(cfg.RemoteURL)
		if err != nil {
			_ = pw.Stop()
			return nil, fmt.Errorf("playwright: connect %s: %w", cfg.RemoteURL, err)
		}
		b.browser = browser
		if contexts := browser.Contexts(); len(contexts) > 0 {
			b.bctx = contexts[0]
		} else if b.bctx, err = browser.NewContext(); err != nil {
			_ = pw.Stop()
			return nil, fmt.Errorf("playwright: new context: %w", err)
		}
		return b, nil
	}
	b.bctx, err = pw.Chromium.LaunchPersistentContext(cfg.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("playwright: launch: %w", err)
	}
	return b, nil
}

func (b *playwrightBrowser) Tab(ctx context.Context) (Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, p := range b.bctx.Pages() {
		if !onSite(p.URL(), b.cfg.SiteHost) {
			continue
		}
		if err := p.BringToFront(); err != nil {
			return nil, fmt.Errorf("playwright: focus tab: %w", err)
		}
		return NewScriptDocument(&playwrightTab{p: p}), nil
	}
	p, err := b.bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("playwright: new page: %w", err)
	}
	tab := &playwrightTab{p: p}
	if err := tab.Navigate(ctx, b.cfg.SiteURL); err != nil {
		return nil, fmt.Errorf("playwright: open %s: %w", b.cfg.SiteURL, err)
	}
	return NewScriptDocument(tab), nil
}

func (b *playwrightBrowser) Close() error {
	if b.browser == nil {
		if err := b.bctx.Close(); err != nil {
			return err
		}
	}
	return b.pw.Stop()
}

// playwrightTab ignores deadlines inside a call; playwright-go has no
// context support, so ctx is only checked before each call.
type playwrightTab struct {
	p playwright.Page
}

func (t *playwrightTab) Eval(ctx context.Context, expr string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := t.p.Evaluate(expr)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (t *playwrightTab) Location(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return t.p.URL(), nil
}

func (t *playwrightTab) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.p.Goto(url)
	return err
}
