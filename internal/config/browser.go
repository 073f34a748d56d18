package config

import (
	"strings"
	"time"
)

// DefaultSiteURL is the canonical search page of the booking site.
const DefaultSiteURL = "https://www.irctc.co.in/nget/train-search"

// BrowserConfig selects and configures the driver behind the live page.
// When RemoteURL is set the agent attaches to an already running browser
// (the one the user logged in with) instead of launching its own.
type BrowserConfig struct {
	Driver      string // chromedp | rod | playwright
	RemoteURL   string // DevTools websocket/HTTP endpoint of a running browser
	Headless    bool
	UserDataDir string // persistent profile so the site session survives restarts
	SiteURL     string
	SiteHost    string // host used to recognise an existing tab
}

// FlowTimings groups every delay and budget the automation uses.  The
// defaults follow the booking site's observed behaviour.
type FlowTimings struct {
	MaxWait        time.Duration // budget of each bounded wait
	PollInterval   time.Duration // cadence of each bounded wait
	SuggestionWait time.Duration // how long to look for an autocomplete suggestion; 0 only checks once
	PageSettle     time.Duration // pause after the page reports ready
	ClickSettle    time.Duration // before and after each click
	FillSettle     time.Duration // after each text fill
	SelectSettle   time.Duration // after each select change
	StepSettle     time.Duration // between larger steps (dropdowns, add passenger)
}

func LoadBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Driver:      strings.ToLower(envStr("BROWSER_DRIVER", "chromedp")),
		RemoteURL:   envStr("BROWSER_REMOTE_URL", ""),
		Headless:    envBool("BROWSER_HEADLESS", false),
		UserDataDir: envStr("BROWSER_USER_DATA_DIR", "data/browser-profile"),
		SiteURL:     envStr("SITE_URL", DefaultSiteURL),
		SiteHost:    envStr("SITE_HOST", "irctc.co.in"),
	}
}

// DefaultFlowTimings returns the timings used when no environment overrides
// are present.
func DefaultFlowTimings() FlowTimings {
	return FlowTimings{
		MaxWait:        45 * time.Second,
		PollInterval:   100 * time.Millisecond,
		SuggestionWait: 3 * time.Second,
		PageSettle:     time.Second,
		ClickSettle:    100 * time.Millisecond,
		FillSettle:     200 * time.Millisecond,
		SelectSettle:   100 * time.Millisecond,
		StepSettle:     500 * time.Millisecond,
	}
}

func LoadFlowTimings() FlowTimings {
	def := DefaultFlowTimings()
	t := FlowTimings{
		MaxWait:        envDur("FLOW_MAX_WAIT", def.MaxWait),
		PollInterval:   envDur("FLOW_POLL_INTERVAL", def.PollInterval),
		SuggestionWait: envDur("FLOW_SUGGESTION_WAIT", def.SuggestionWait),
		PageSettle:     envDur("FLOW_PAGE_SETTLE", def.PageSettle),
		ClickSettle:    envDur("FLOW_CLICK_SETTLE", def.ClickSettle),
		FillSettle:     envDur("FLOW_FILL_SETTLE", def.FillSettle),
		SelectSettle:   envDur("FLOW_SELECT_SETTLE", def.SelectSettle),
		StepSettle:     envDur("FLOW_STEP_SETTLE", def.StepSettle),
	}
	if t.PollInterval <= 0 {
		t.PollInterval = def.PollInterval
	}
	if t.SuggestionWait < 0 {
		t.SuggestionWait = 0
	}
	if t.MaxWait < t.PollInterval {
		t.MaxWait = t.PollInterval
	}
	return t
}
