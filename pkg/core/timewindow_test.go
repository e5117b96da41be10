package core

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "calendar with seconds", input: "2021/03/04/05:06:07", want: time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)},
		{name: "calendar without seconds", input: "2021/03/04/05:06", want: time.Date(2021, 3, 4, 5, 6, 0, 0, time.UTC)},
		{name: "day of year", input: "2021/063/05:06:07", want: time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)},
		{name: "leap day of year", input: "2020/366/00:00", want: time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)},
		{name: "day 366 in common year", input: "2021/366/00:00", wantErr: true},
		{name: "bad month", input: "2021/13/01/00:00", wantErr: true},
		{name: "bad clock", input: "2021/03/04/25:00", wantErr: true},
		{name: "too few parts", input: "2021/03", wantErr: true},
		{name: "garbage", input: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTime(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestMJDConversion(t *testing.T) {
	assert.Equal(t, 0.0, TimeToMJDSeconds(MJDEpoch))

	// 2000-01-01T00:00:00 is MJD 51544
	y2k := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 51544.0, MJD(y2k), 1e-12)
	assert.InDelta(t, 51544.0*SecondsPerDay, TimeToMJDSeconds(y2k), 1e-6)

	ts := time.Date(2021, 3, 4, 5, 6, 7, 500_000_000, time.UTC)
	back := MJDSecondsToTime(TimeToMJDSeconds(ts))
	assert.WithinDuration(t, ts, back, time.Microsecond)
	assert.Equal(t, 63, DayOfYear(ts))
}

func TestTimeWindow(t *testing.T) {
	w, err := NewTimeWindow(10, 20)
	require.NoError(t, err)

	assert.True(t, w.Contains(10), "start is inclusive")
	assert.True(t, w.Contains(20), "end is inclusive")
	assert.False(t, w.Contains(9.999))
	assert.False(t, w.Contains(20.001))
	assert.Equal(t, 10.0, w.Duration())

	_, err = NewTimeWindow(20, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTimeRange))

	u := Unbounded()
	assert.True(t, u.IsUnbounded())
	assert.True(t, u.Contains(-1e300))
	assert.True(t, u.Contains(math.MaxFloat64))

	narrowed, err := u.Intersect(w)
	require.NoError(t, err)
	assert.Equal(t, w, narrowed)

	other, _ := NewTimeWindow(30, 40)
	_, err = w.Intersect(other)
	assert.True(t, errors.Is(err, ErrInvalidTimeRange))
}

func TestWindowBetween(t *testing.T) {
	start := time.Date(2021, 3, 4, 5, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	w, err := WindowBetween(&start, nil)
	require.NoError(t, err)
	assert.Equal(t, TimeToMJDSeconds(start), w.Start)
	assert.True(t, math.IsInf(w.End, 1))

	w, err = WindowBetween(&start, &end)
	require.NoError(t, err)
	assert.InDelta(t, 3600.0, w.Duration(), 1e-6)

	_, err = WindowBetween(&end, &start)
	assert.True(t, errors.Is(err, ErrInvalidTimeRange))
}
