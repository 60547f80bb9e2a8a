package client

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshCoordinatorStates(t *testing.T) {
	t.Parallel()

	var rc refreshCoordinator
	gen := rc.generation()

	action, _ := rc.join(gen, nil)
	require.Equal(t, actionLead, action)
	state, _ := rc.snapshot()
	assert.Equal(t, "REFRESHING", state.String())

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		action, _ = rc.join(gen, func(res refreshResult) {
			assert.Equal(t, "new-token", res.token)
			order = append(order, i)
		})
		require.Equal(t, actionWait, action)
	}
	_, waiting := rc.snapshot()
	assert.Equal(t, 3, waiting)

	resumed := rc.finish(refreshResult{token: "new-token"})
	assert.Equal(t, 3, resumed)
	assert.Equal(t, []int{0, 1, 2}, order)

	state, waiting = rc.snapshot()
	assert.Equal(t, "IDLE", state.String())
	assert.Zero(t, waiting)
	assert.Equal(t, gen+1, rc.generation())
}

func TestRefreshCoordinatorReusesSettledOutcome(t *testing.T) {
	t.Parallel()

	var rc refreshCoordinator
	stale := rc.generation()

	action, _ := rc.join(stale, nil)
	require.Equal(t, actionLead, action)
	failure := errors.New("refresh rejected")
	rc.finish(refreshResult{err: failure})

	// A 401 for a request sent before the refresh settled must not start another one.
	action, last := rc.join(stale, nil)
	assert.Equal(t, actionReuse, action)
	assert.ErrorIs(t, last.err, failure)

	// A request sent afterwards leads a new refresh.
	action, _ = rc.join(rc.generation(), nil)
	assert.Equal(t, actionLead, action)
	rc.finish(refreshResult{token: "t2"})
}

func TestRefreshCoordinatorReuseWindow(t *testing.T) {
	t.Parallel()

	rc := &NewRefreshGroup(time.Minute).rc
	action, _ := rc.join(rc.generation(), nil)
	require.Equal(t, actionLead, action)
	rc.finish(refreshResult{token: "t1", pair: TokenPair{Access: "t1", Refresh: "r1"}})

	// Sent after the refresh settled, but within the window: reuse it.
	action, last := rc.join(rc.generation(), nil)
	assert.Equal(t, actionReuse, action)
	assert.Equal(t, TokenPair{Access: "t1", Refresh: "r1"}, last.pair)

	// Failures are never reused for later requests.
	rc.settledAt = time.Now().Add(-2 * time.Minute)
	action, _ = rc.join(rc.generation(), nil)
	require.Equal(t, actionLead, action)
	rc.finish(refreshResult{err: errors.New("rejected")})
	action, _ = rc.join(rc.generation(), nil)
	assert.Equal(t, actionLead, action)
	rc.finish(refreshResult{token: "t2"})
}

func TestRetryPolicy(t *testing.T) {
	t.Parallel()

	p := DefaultRetryPolicy()
	assert.Equal(t, "1s", p.Delay(0).String())
	assert.Equal(t, "2s", p.Delay(1).String())

	assert.True(t, p.ShouldRetry(0, &APIError{StatusCode: 503}))
	assert.True(t, p.ShouldRetry(1, &APIError{StatusCode: 408}))
	assert.False(t, p.ShouldRetry(2, &APIError{StatusCode: 504}))
	assert.False(t, p.ShouldRetry(0, &APIError{StatusCode: 500}))
	assert.False(t, p.ShouldRetry(0, &APIError{StatusCode: 401}))
	assert.False(t, p.ShouldRetry(0, nil))
}
