// ==============================
// File: internal/quote/latest.go
// ==============================
package quote

import "sync/atomic"

// Guard implements latest-request-wins for input-driven re-quoting. Each
// request takes a token with Begin; when its result arrives, a result is
// only observable if Latest still holds. Superseded in-flight requests are
// discarded at resolution time rather than cancelled.
type Guard struct {
	latest atomic.Uint64
}

// Begin registers a new request, invalidating all earlier tokens.
func (g *Guard) Begin() uint64 {
	return g.latest.Add(1)
}

// Latest reports whether token still identifies the most recent request.
func (g *Guard) Latest(token uint64) bool {
	return g.latest.Load() == token
}
