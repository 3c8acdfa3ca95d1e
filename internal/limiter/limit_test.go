package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimit(t *testing.T) {
	l, err := NewLimit(10, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 10, l.MaxCount())
	assert.Equal(t, 3*time.Second, l.Window())
	assert.True(t, l.Valid())
	assert.Equal(t, "10/3s", l.String())
}

func TestNewLimit_Invalid(t *testing.T) {
	for _, tc := range []struct {
		name   string
		max    int
		window time.Duration
	}{
		{"zero max", 0, time.Second},
		{"negative max", -1, time.Second},
		{"zero window", 1, 0},
		{"negative window", 1, -time.Millisecond},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLimit(tc.max, tc.window)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestLimit_ZeroValueInvalid(t *testing.T) {
	assert.False(t, Limit{}.Valid())
}

func TestMustLimit_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLimit(0, time.Second) })
	assert.NotPanics(t, func() { MustLimit(1, time.Second) })
}

func TestParseLimit(t *testing.T) {
	l, err := ParseLimit(" 100 / 1m ")
	require.NoError(t, err)
	assert.Equal(t, MustLimit(100, time.Minute), l)

	for _, bad := range []string{"", "10", "x/1s", "10/forever", "0/1s", "5/0s"} {
		_, err := ParseLimit(bad)
		assert.ErrorIs(t, err, ErrInvalidArgument, "input %q", bad)
	}
}

func TestParseLimits_RoundTrip(t *testing.T) {
	limits, err := ParseLimits("10/3s,100/1m0s,,1000/24h0m0s")
	require.NoError(t, err)
	require.Len(t, limits, 3)
	assert.Equal(t, "10/3s,100/1m0s,1000/24h0m0s", FormatLimits(limits))

	_, err = ParseLimits(" , ")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{
		"":           StrategyPoll,
		"poll":       StrategyPoll,
		"serialized": StrategySerialized,
	} {
		got, err := ParseStrategy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseStrategy("fifo")
	require.ErrorIs(t, err, ErrInvalidArgument)
}
