package flow

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/irctc-booking-supporter/internal/wait"
)

func TestAvailabilityLabel(t *testing.T) {
	cases := map[string]string{
		"2025-02-03": "Mon, 03 Feb",
		"2025-03-10": "Mon, 10 Mar",
		"2024-12-31": "Tue, 31 Dec",
	}
	for in, want := range cases {
		d, err := time.Parse(time.DateOnly, in)
		require.NoError(t, err)
		assert.Equal(t, want, AvailabilityLabel(d), in)
	}
}

func TestCalendarMonth(t *testing.T) {
	m, y, err := calendarMonth(" March ", "2025", 1999)
	require.NoError(t, err)
	assert.Equal(t, time.March, m)
	assert.Equal(t, 2025, y)

	_, y, err = calendarMonth("December", "", 2026)
	require.NoError(t, err)
	assert.Equal(t, 2026, y)

	_, _, err = calendarMonth("Mar", "2025", 2025)
	assert.Error(t, err)
}

func TestErrorMatchesItsKind(t *testing.T) {
	cause := &wait.TimeoutError{After: time.Second}
	err := fmt.Errorf("select train: %w", timedOut("train", "date", "Train not available", cause))

	assert.ErrorIs(t, err, ErrWaitTimeout)
	assert.ErrorIs(t, err, wait.ErrTimeout)
	assert.NotErrorIs(t, err, ErrElementNotFound)
	assert.Equal(t, KindWaitTimeout, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))

	nf := notFound("passengers", "mobile", "Could not find the mobile control.")
	assert.Equal(t, "ElementNotFound [passengers] field=mobile: Could not find the mobile control.", nf.Error())
}
