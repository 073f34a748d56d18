package status

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/irctc-booking-supporter/internal/model"
)

func TestMultiFanOut(t *testing.T) {
	ctx := context.Background()
	var rec Recorder
	var snap Snapshot
	var calls int
	m := Multi{&rec, nil, &snap, ReporterFunc(func(context.Context, Update) { calls++ })}

	m.Report(ctx, Update{State: model.StateSearching, Message: "Filling search form..."})
	m.Report(ctx, Update{State: model.StateSearching, Message: "Searching trains..."})
	m.Report(ctx, Update{State: model.StateSelectingTrain, Message: "Looking for train: 12951..."})

	assert.Len(t, rec.Updates(), 3)
	assert.Equal(t, []model.FlowState{model.StateSearching, model.StateSelectingTrain}, rec.States())
	assert.Equal(t, 3, calls)

	last, ok := snap.Last()
	assert.True(t, ok)
	assert.Equal(t, "Looking for train: 12951...", last.Message)
	assert.Equal(t, last, rec.Last())
}

func TestSnapshotEmpty(t *testing.T) {
	var snap Snapshot
	_, ok := snap.Last()
	assert.False(t, ok)
}

func TestLogReporterLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := Log{L: zap.New(core)}

	r.Report(context.Background(), Update{RunID: "r1", State: model.StateSearching, Level: LevelInfo, Message: "Searching trains..."})
	r.Report(context.Background(), Update{RunID: "r1", State: model.StateError, Level: LevelError, ErrorKind: "ElementNotFound", Message: "Error: train not found"})

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zap.InfoLevel, entries[0].Level)
		assert.Equal(t, zap.WarnLevel, entries[1].Level)
		assert.Equal(t, "ElementNotFound", entries[1].ContextMap()["error_kind"])
		assert.Equal(t, "r1", entries[0].ContextMap()["run_id"])
	}
}
