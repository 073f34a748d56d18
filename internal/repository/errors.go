// Package repository persists saved booking configurations and the run
// history.  The sentinel values below let handlers tell the failure
// scenarios apart: ErrNotFound becomes a 404 and ErrLabelRequired a 400,
// while a *model.ValidationError from Save is reported with its reason.
package repository

import "errors"

// ErrNotFound is returned when no configuration or run exists under the
// requested key.
var ErrNotFound = errors.New("not found")

// ErrLabelRequired is returned by Save when the label is blank.
var ErrLabelRequired = errors.New("label is required")
