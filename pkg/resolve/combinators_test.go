package resolve_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/lc/whereami/pkg/resolve"
)

func TestFallbackPrefersEarlierChildren(t *testing.T) {
	r := resolve.Fallback(
		yields("first", "203.0.113.1", 0),
		yields("second", "203.0.113.2", 0),
	)

	c, ok := resolve.FirstCandidate(context.Background(), r, nil)
	require.True(t, ok)
	assert.Equal(t, "first", c.Provider)
	assert.Equal(t, addr("203.0.113.1"), c.Addr)
}

func TestFallbackMovesPastFailures(t *testing.T) {
	r := resolve.Fallback(
		fails("broken", 0),
		emitsNothing(0),
		yields("working", "203.0.113.3", 0),
	)

	c, ok := resolve.FirstCandidate(context.Background(), r, nil)
	require.True(t, ok)
	assert.Equal(t, "working", c.Provider)
}

func TestFallbackShortCircuits(t *testing.T) {
	var calls atomic.Int64
	spare := yields("spare", "203.0.113.4", 0)
	spare.calls = &calls

	r := resolve.Fallback(
		yields("first", "203.0.113.1", 0),
		spare,
	)

	_, ok := resolve.FirstCandidate(context.Background(), r, nil)
	require.True(t, ok)
	assert.EqualValues(t, 0, calls.Load(), "later child must not be invoked")
}

func TestFallbackExhaustion(t *testing.T) {
	r := resolve.Fallback(
		fails("a", 0),
		fails("b", 0),
		emitsNothing(0),
	)

	_, ok := resolve.First(context.Background(), r, nil)
	assert.False(t, ok)
}

func TestFallbackOfNothing(t *testing.T) {
	_, ok := resolve.First(context.Background(), resolve.Fallback(), nil)
	assert.False(t, ok)
}

func TestRaceFirstAnswerWins(t *testing.T) {
	r := resolve.Race(
		yields("slow", "203.0.113.1", 300*time.Millisecond),
		yields("fast", "203.0.113.2", 10*time.Millisecond),
	)

	c, ok := resolve.FirstCandidate(context.Background(), r, nil)
	require.True(t, ok)
	assert.Equal(t, "fast", c.Provider)
}

func TestRaceSurvivesFastFailures(t *testing.T) {
	r := resolve.Race(
		fails("broken", 0),
		fails("also broken", 0),
		yields("slow but working", "203.0.113.5", 50*time.Millisecond),
	)

	c, ok := resolve.FirstCandidate(context.Background(), r, nil)
	require.True(t, ok)
	assert.Equal(t, "slow but working", c.Provider)
}

func TestRaceDoesNotWaitForLosers(t *testing.T) {
	r := resolve.Race(
		hangs{},
		hangs{},
		yields("winner", "203.0.113.6", 50*time.Millisecond),
	)

	start := time.Now()
	c, ok := resolve.FirstCandidate(context.Background(), r, nil,
		resolve.WithTimeout(5*time.Second))

	require.True(t, ok)
	assert.Equal(t, "winner", c.Provider)
	assert.Less(t, time.Since(start), time.Second,
		"the race must return as soon as one child answers")
}

func TestRaceExhaustion(t *testing.T) {
	r := resolve.Race(
		fails("a", 0),
		emitsNothing(0),
	)

	_, ok := resolve.First(context.Background(), r, nil)
	assert.False(t, ok)
}

func TestRaceOfNothing(t *testing.T) {
	_, ok := resolve.First(context.Background(), resolve.Race(), nil)
	assert.False(t, ok)
}

func TestNestedRaceOfFallbacks(t *testing.T) {
	providerA := resolve.Fallback(
		fails("a-dns", 0),
		yields("a-http", "203.0.113.10", 100*time.Millisecond),
	)
	providerB := resolve.Fallback(
		fails("b-dns", 0),
		yields("b-http", "203.0.113.11", 20*time.Millisecond),
	)

	c, ok := resolve.FirstCandidate(context.Background(), resolve.Race(providerA, providerB), nil)
	require.True(t, ok)
	assert.Equal(t, "b-http", c.Provider)
	assert.Equal(t, addr("203.0.113.11"), c.Addr)
}

func TestCombinatorsAreReusable(t *testing.T) {
	var first, second atomic.Int64
	a := fails("a", 0)
	a.calls = &first
	b := yields("b", "203.0.113.12", 0)
	b.calls = &second

	r := resolve.Fallback(a, b)

	for i := 0; i < 2; i++ {
		c, ok := resolve.FirstCandidate(context.Background(), r, nil)
		require.True(t, ok)
		assert.Equal(t, "b", c.Provider)
	}
	assert.EqualValues(t, 2, first.Load())
	assert.EqualValues(t, 2, second.Load())
}

func TestTimeoutCutsOffStalledChildren(t *testing.T) {
	r := resolve.Race(hangs{}, hangs{})

	start := time.Now()
	_, ok := resolve.First(context.Background(), r, nil,
		resolve.WithTimeout(100*time.Millisecond))

	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)
}
