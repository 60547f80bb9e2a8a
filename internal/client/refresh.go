package client

import (
	"sync"
	"time"
)

type refreshState int

const (
	stateIdle refreshState = iota
	stateRefreshing
)

func (s refreshState) String() string {
	if s == stateRefreshing {
		return "REFRESHING"
	}
	return "IDLE"
}

type refreshResult struct {
	token string
	pair  TokenPair
	err   error
}

// joinAction is what a request that got a 401 must do next.
type joinAction int

const (
	// actionLead: the caller owns the refresh and must call finish.
	actionLead joinAction = iota
	// actionWait: a refresh is in flight; the continuation fires when it settles.
	actionWait
	// actionReuse: a refresh settled after the request was sent; use its outcome.
	actionReuse
)

// refreshCoordinator serializes token refreshes for one Client. At most one
// refresh runs at a time; requests arriving during it queue FIFO and are
// resumed in arrival order when it settles.
type refreshCoordinator struct {
	mu      sync.Mutex
	state   refreshState
	waiters []func(refreshResult)
	gen     uint64
	last    refreshResult

	// reuseFor hands a recent successful refresh to 401s that were sent
	// after it settled but still carried the old tokens.
	reuseFor  time.Duration
	settledAt time.Time
}

// generation identifies the most recently settled refresh. Requests capture
// it before sending so a late 401 can tell whether its token is stale.
func (rc *refreshCoordinator) generation() uint64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.gen
}

// join decides, atomically, how a request that was sent during generation
// sentGen and answered 401 proceeds. For actionWait the continuation is
// queued; for actionReuse the last outcome is returned.
func (rc *refreshCoordinator) join(sentGen uint64, resume func(refreshResult)) (joinAction, refreshResult) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.state == stateRefreshing {
		rc.waiters = append(rc.waiters, resume)
		return actionWait, refreshResult{}
	}
	if rc.gen != sentGen {
		return actionReuse, rc.last
	}
	if rc.reuseFor > 0 && rc.gen > 0 && rc.last.err == nil && time.Since(rc.settledAt) < rc.reuseFor {
		return actionReuse, rc.last
	}
	rc.state = stateRefreshing
	return actionLead, refreshResult{}
}

// finish settles the in-flight refresh: the queue is detached, the state
// returns to IDLE and every continuation is resumed in arrival order. It
// returns the number of resumed waiters.
func (rc *refreshCoordinator) finish(res refreshResult) int {
	rc.mu.Lock()
	waiters := rc.waiters
	rc.waiters = nil
	rc.state = stateIdle
	rc.gen++
	rc.last = res
	rc.settledAt = time.Now()
	rc.mu.Unlock()

	for _, resume := range waiters {
		resume(res)
	}
	return len(waiters)
}

func (rc *refreshCoordinator) snapshot() (refreshState, int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.state, len(rc.waiters)
}

// RefreshGroup is a refresh coordinator shared by several Clients that act
// for the same session, each over its own TokenManager. The Client that
// runs the refresh stores the new pair in its own TokenManager; the others
// copy it into theirs when they resume.
type RefreshGroup struct {
	rc refreshCoordinator
}

// NewRefreshGroup creates a group. A successful refresh is reused for
// reuseFor after it settles, so requests that raced ahead of the new
// tokens do not spend a refresh token the API has already rotated.
func NewRefreshGroup(reuseFor time.Duration) *RefreshGroup {
	return &RefreshGroup{rc: refreshCoordinator{reuseFor: reuseFor}}
}
