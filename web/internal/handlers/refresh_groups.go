package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/devilmonastery/salesdesk/internal/client"
)

const (
	// refreshReuseWindow covers browser requests sent before the rotated
	// cookies arrived.
	refreshReuseWindow = 30 * time.Second
	refreshGroupIdle   = 2 * time.Minute
)

// refreshGroups hands out one client.RefreshGroup per browser session, so
// concurrent requests of a session share a single token refresh. Sessions
// are keyed by a hash of their refresh token; idle groups are dropped.
type refreshGroups struct {
	mu     sync.Mutex
	groups map[string]*refreshGroupEntry
	swept  time.Time
	now    func() time.Time
}

type refreshGroupEntry struct {
	group *client.RefreshGroup
	used  time.Time
}

func newRefreshGroups() *refreshGroups {
	return &refreshGroups{
		groups: make(map[string]*refreshGroupEntry),
		now:    time.Now,
	}
}

// get returns the group for refreshToken, or nil when there is none to share.
func (g *refreshGroups) get(refreshToken string) *client.RefreshGroup {
	if refreshToken == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(refreshToken))
	key := hex.EncodeToString(sum[:])

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now.Sub(g.swept) > refreshGroupIdle {
		for k, e := range g.groups {
			if now.Sub(e.used) > refreshGroupIdle {
				delete(g.groups, k)
			}
		}
		g.swept = now
	}

	e, ok := g.groups[key]
	if !ok {
		e = &refreshGroupEntry{group: client.NewRefreshGroup(refreshReuseWindow)}
		g.groups[key] = e
	}
	e.used = now
	return e.group
}

func (g *refreshGroups) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.groups)
}
