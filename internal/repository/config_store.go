package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/irctc-booking-supporter/internal/model"
)

// Key names shared by the store backends.  LegacyKey held the single
// configuration older shells saved before labels existed.
const (
	ConfigsKey = "irctcConfigs"
	LegacyKey  = "irctcConfig"
)

// ConfigSummary is one entry of the saved-configuration listing.
type ConfigSummary struct {
	Label   string    `json:"label"`
	SavedAt time.Time `json:"savedAt"`
}

// ConfigStore keeps booking requests under user-chosen labels.  Saving an
// existing label replaces it.
type ConfigStore interface {
	Save(ctx context.Context, label string, req model.BookingRequest) (model.SavedConfiguration, error)
	Load(ctx context.Context, label string) (model.SavedConfiguration, error)
	List(ctx context.Context) ([]ConfigSummary, error)
	Delete(ctx context.Context, label string) error
	// Latest returns the most recently saved configuration.
	Latest(ctx context.Context) (model.SavedConfiguration, error)
	// Migrate moves the legacy single record into the mapping once.
	Migrate(ctx context.Context) error
}

// cleanLabel is applied to every label a store method receives, so lookups
// match what Save wrote.
func cleanLabel(label string) string { return strings.TrimSpace(label) }

// prepare normalizes and validates req and stamps it for storage.
func prepare(label string, req model.BookingRequest, now time.Time) (model.SavedConfiguration, error) {
	label = cleanLabel(label)
	if label == "" {
		return model.SavedConfiguration{}, ErrLabelRequired
	}
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return model.SavedConfiguration{}, err
	}
	return model.SavedConfiguration{BookingRequest: req, SavedAt: now.UTC(), Label: label}, nil
}

// summarize lists newest first, label order breaking ties.
func summarize(all []model.SavedConfiguration) []ConfigSummary {
	out := make([]ConfigSummary, 0, len(all))
	for _, c := range all {
		out = append(out, ConfigSummary{Label: c.Label, SavedAt: c.SavedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func latest(all []model.SavedConfiguration) (model.SavedConfiguration, error) {
	if len(all) == 0 {
		return model.SavedConfiguration{}, ErrNotFound
	}
	best := all[0]
	for _, c := range all[1:] {
		if c.SavedAt.After(best.SavedAt) || (c.SavedAt.Equal(best.SavedAt) && c.Label < best.Label) {
			best = c
		}
	}
	return best, nil
}

// legacyRecord turns the old single-record payload into a labelled entry.
// Records written before savedAt existed are stamped with now.
func legacyRecord(c model.SavedConfiguration, now time.Time) model.SavedConfiguration {
	c.Label = model.LegacyLabel
	if c.SavedAt.IsZero() {
		c.SavedAt = now.UTC()
	}
	return c
}
