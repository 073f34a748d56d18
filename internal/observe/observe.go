// Package observe classifies the booking site's current page.
package observe

import (
	"context"
	"strings"

	"github.com/iliyamo/irctc-booking-supporter/internal/model"
	"github.com/iliyamo/irctc-booking-supporter/internal/page"
)

// URL path fragments of the booking journey.
const (
	FragmentSearch    = "train-search"
	FragmentList      = "train-list"
	FragmentPassenger = "psgninput"
	FragmentReview    = "reviewBooking"
)

// Blocking signals.
const (
	BlockedDomain = "errors.edgesuite.net"
	BlockedText   = "You don't have permission"
)

// LogoutSelector is only rendered for a signed-in user.
const LogoutSelector = "a.search_btn.loginText.ng-star-inserted > span"

// PassengerNameSelector marks the passenger form even before the URL
// settles.
const PassengerNameSelector = `input[placeholder*="Name"]`

// Classify maps the page to a PageKind.  Blocking signals win over the URL.
func Classify(ctx context.Context, doc page.Document) (model.PageKind, error) {
	blocked, err := IsAccessBlocked(ctx, doc)
	if err != nil {
		return model.PageUnknown, err
	}
	if blocked {
		return model.PageBlocked, nil
	}
	url, err := doc.URL(ctx)
	if err != nil {
		return model.PageUnknown, err
	}
	return KindOfURL(url), nil
}

// KindOfURL classifies by URL fragment alone.
func KindOfURL(url string) model.PageKind {
	switch {
	case strings.Contains(url, BlockedDomain):
		return model.PageBlocked
	case strings.Contains(url, FragmentSearch):
		return model.PageSearch
	case strings.Contains(url, FragmentList):
		return model.PageList
	case strings.Contains(url, FragmentPassenger):
		return model.PagePassenger
	case strings.Contains(url, FragmentReview):
		return model.PageReview
	}
	return model.PageUnknown
}

// IsAccessBlocked reports an error-domain redirect or a permission-denied
// page.
func IsAccessBlocked(ctx context.Context, doc page.Document) (bool, error) {
	url, err := doc.URL(ctx)
	if err != nil {
		return false, err
	}
	if strings.Contains(url, BlockedDomain) {
		return true, nil
	}
	body, err := doc.BodyText(ctx)
	if err != nil {
		return false, err
	}
	return strings.Contains(body, BlockedText), nil
}

// IsAuthenticated infers a signed-in session from the logout affordance.
// Its absence is read as signed out.
func IsAuthenticated(ctx context.Context, doc page.Document) (bool, error) {
	el, err := page.First(ctx, doc, LogoutSelector)
	return el != nil, err
}

// OnPassengerPage accepts either the passenger URL or a rendered name input.
func OnPassengerPage(ctx context.Context, doc page.Document) (bool, error) {
	url, err := doc.URL(ctx)
	if err != nil {
		return false, err
	}
	if strings.Contains(url, FragmentPassenger) {
		return true, nil
	}
	el, err := page.First(ctx, doc, PassengerNameSelector)
	return el != nil, err
}
