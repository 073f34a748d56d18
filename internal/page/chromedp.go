package page

import (
	"context"
	"fmt"
	"sync"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/iliyamo/irctc-booking-supporter/internal/config"
)

type chromedpBrowser struct {
	cfg           config.BrowserConfig
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc

	mu   sync.Mutex
	tabs *tabSet
}

func openChromedp(_ context.Context, cfg config.BrowserConfig) (Browser, error) {
	// The browser outlives any single request, so it hangs off Background.
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("disable-extensions", false),
			chromedp.UserDataDir(cfg.UserDataDir),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp: start browser: %w", err)
	}
	b := &chromedpBrowser{
		cfg:           cfg,
		browserCtx:    browserCtx,
		allocCancel:   allocCancel,
		browserCancel: browserCancel,
	}
	b.tabs = &tabSet{
		keep: cfg.RemoteURL != "",
		open: func(id target.ID) (context.Context, context.CancelFunc) {
			return chromedp.NewContext(b.tabParent(), chromedp.WithTargetID(id))
		},
	}
	return b, nil
}

// tabParent is the parent of every target context.  Cancelling a chromedp
// target context closes the tab, so in a user's browser the targets are
// detached from the browser context's cancellation.
func (b *chromedpBrowser) tabParent() context.Context {
	if b.tabs != nil && b.tabs.keep {
		return context.WithoutCancel(b.browserCtx)
	}
	return b.browserCtx
}

func (b *chromedpBrowser) Tab(ctx context.Context) (Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	targets, err := chromedp.Targets(b.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("chromedp: list targets: %w", err)
	}
	live := make(map[target.ID]bool, len(targets))
	for _, t := range targets {
		live[t.TargetID] = true
	}
	b.tabs.prune(live)

	for _, t := range targets {
		if t.Type != "page" || !onSite(t.URL, b.cfg.SiteHost) {
			continue
		}
		tab := &chromedpTab{ctx: b.tabs.use(t.TargetID)}
		if err := tab.run(ctx, cdppage.BringToFront()); err != nil {
			return nil, fmt.Errorf("chromedp: focus tab: %w", err)
		}
		return NewScriptDocument(tab), nil
	}

	tabCtx, cancel := chromedp.NewContext(b.tabParent())
	tab := &chromedpTab{ctx: tabCtx}
	if err := tab.run(ctx, chromedp.Navigate(b.cfg.SiteURL)); err != nil {
		if !b.tabs.keep {
			cancel()
		}
		return nil, fmt.Errorf("chromedp: open %s: %w", b.cfg.SiteURL, err)
	}
	var id target.ID
	if c := chromedp.FromContext(tabCtx); c != nil && c.Target != nil {
		id = c.Target.TargetID
	}
	b.tabs.add(id, tabCtx, cancel)
	return NewScriptDocument(tab), nil
}

// Close releases the browser.  A browser the agent launched is shut down
// with its tabs; a remote one is only disconnected.
func (b *chromedpBrowser) Close() error {
	b.mu.Lock()
	b.tabs.closeAll()
	b.mu.Unlock()
	b.browserCancel()
	b.allocCancel()
	return nil
}

type tabContext struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// tabSet tracks the target contexts of a chromedp browser, one per target.
// With keep set the browser belongs to the user and no target context is
// ever cancelled; otherwise only the current tab is kept attached.
type tabSet struct {
	keep    bool
	open    func(id target.ID) (context.Context, context.CancelFunc)
	tabs    map[target.ID]tabContext
	current target.ID
}

// use returns the context of id, attaching to it on first use.
func (s *tabSet) use(id target.ID) context.Context {
	if t, ok := s.tabs[id]; ok {
		s.switchTo(id)
		return t.ctx
	}
	ctx, cancel := s.open(id)
	s.add(id, ctx, cancel)
	return ctx
}

func (s *tabSet) add(id target.ID, ctx context.Context, cancel context.CancelFunc) {
	if s.tabs == nil {
		s.tabs = map[target.ID]tabContext{}
	}
	s.tabs[id] = tabContext{ctx: ctx, cancel: cancel}
	s.switchTo(id)
}

func (s *tabSet) switchTo(id target.ID) {
	if s.current != id && s.current != "" && !s.keep {
		s.release(s.current)
	}
	s.current = id
}

func (s *tabSet) release(id target.ID) {
	t, ok := s.tabs[id]
	if !ok {
		return
	}
	delete(s.tabs, id)
	if !s.keep {
		t.cancel()
	}
	if s.current == id {
		s.current = ""
	}
}

// prune forgets targets that are no longer open.
func (s *tabSet) prune(live map[target.ID]bool) {
	for id := range s.tabs {
		if !live[id] {
			s.release(id)
		}
	}
}

func (s *tabSet) closeAll() {
	for id := range s.tabs {
		s.release(id)
	}
}

// chromedpTab evaluates against one target.  Calls are bound to the
// caller's context without cancelling the tab itself.
type chromedpTab struct {
	ctx context.Context
}

func (t *chromedpTab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(t.ctx)
	stop := context.AfterFunc(ctx, cancel)
	defer func() {
		stop()
		cancel()
	}()
	return chromedp.Run(runCtx, actions...)
}

func (t *chromedpTab) Eval(ctx context.Context, expr string, out any) error {
	return t.run(ctx, chromedp.Evaluate(expr, out))
}

func (t *chromedpTab) Location(ctx context.Context) (string, error) {
	var url string
	err := t.run(ctx, chromedp.Location(&url))
	return url, err
}

func (t *chromedpTab) Navigate(ctx context.Context, url string) error {
	return t.run(ctx, chromedp.Navigate(url))
}
