package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestParse(t *testing.T) {
	tests := []struct {
		spec string
		want time.Time
	}{
		{"1h", now.Add(-time.Hour)},
		{"1h30m", now.Add(-90 * time.Minute)},
		{"7d", now.AddDate(0, 0, -7)},
		{"0d", now},
		{"2026-03-01T09:00:00Z", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		{"2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{" 2h ", now.Add(-2 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := Parse(tt.spec, now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, spec := range []string{"", "yesterday", "-3d", "2026-13-01"} {
		_, err := Parse(spec, now)
		assert.Error(t, err, spec)
	}
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("2d", "1d", now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -2).UnixMilli(), r.SinceMs)
	assert.True(t, r.Contains(now.Add(-36*time.Hour).UnixMilli()))
	assert.False(t, r.Contains(now.UnixMilli()))

	_, err = ParseRange("1d", "2d", now)
	assert.ErrorContains(t, err, "--since must be before --until")

	_, err = ParseRange("nope", "", now)
	assert.ErrorContains(t, err, "invalid --since")

	open, err := ParseRange("", "", now)
	require.NoError(t, err)
	assert.True(t, open.Contains(1))
}
