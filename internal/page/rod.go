package page

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/iliyamo/irctc-booking-supporter/internal/config"
)

type rodBrowser struct {
	cfg     config.BrowserConfig
	browser *rod.Browser

	mu  sync.Mutex
	tab *rod.Page
}

func openRod(_ context.Context, cfg config.BrowserConfig) (Browser, error) {
	var controlURL string
	var err error
	if cfg.RemoteURL != "" {
		controlURL, err = launcher.ResolveURL(cfg.RemoteURL)
	} else {
		controlURL, err = launcher.New().
			Headless(cfg.Headless).
			UserDataDir(cfg.UserDataDir).
			Set("disable-blink-features", "AutomationControlled").
			Launch()
	}
	if err != nil {
		return nil, fmt.Errorf("rod: resolve browser: %w", err)
	}
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("rod: connect: %w", err)
	}
	return &rodBrowser{cfg: cfg, browser: b}, nil
}

func (b *rodBrowser) Tab(ctx context.Context) (Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pages, err := b.browser.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("rod: list pages: %w", err)
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil || !onSite(info.URL, b.cfg.SiteHost) {
			continue
		}
		if _, err := p.Context(ctx).Activate(); err != nil {
			return nil, fmt.Errorf("rod: focus tab: %w", err)
		}
		b.tab = p
		return NewScriptDocument(&rodTab{p: p}), nil
	}

	p, err := stealth.Page(b.browser)
	if err != nil {
		return nil, fmt.Errorf("rod: new page: %w", err)
	}
	tab := &rodTab{p: p}
	if err := tab.Navigate(ctx, b.cfg.SiteURL); err != nil {
		return nil, fmt.Errorf("rod: open %s: %w", b.cfg.SiteURL, err)
	}
	b.tab = p
	return NewScriptDocument(tab), nil
}

func (b *rodBrowser) Close() error {
	if b.cfg.RemoteURL != "" {
		// Leave the user's own browser running.
		return nil
	}
	return b.browser.Close()
}

type rodTab struct {
	p *rod.Page
}

func (t *rodTab) Eval(ctx context.Context, expr string, out any) error {
	res, err := t.p.Context(ctx).Eval(arrowWrap(expr))
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (t *rodTab) Location(ctx context.Context) (string, error) {
	info, err := t.p.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (t *rodTab) Navigate(ctx context.Context, url string) error {
	p := t.p.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}
