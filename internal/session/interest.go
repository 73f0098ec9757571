package session

import "sync/atomic"

// Interest hands out tokens for superseding requests. Only the most recently
// issued token is current; results gathered under an older token are stale.
type Interest struct {
	gen atomic.Uint64
}

// Next issues a new token, making every earlier one stale.
func (i *Interest) Next() uint64 {
	return i.gen.Add(1)
}

// Current reports whether token is still the latest.
func (i *Interest) Current(token uint64) bool {
	return i.gen.Load() == token
}
