package hal

import (
	"sync"

	"pinhal-go/errcode"
)

// token is the registry-facing side of an access token. invalidate is called
// with the registry mutex held.
type token interface {
	invalidate()
}

// Registry is the ownership table a port embeds to get the one-live-token-
// per-pin invariant. It tracks, per pin, the token currently holding it, and
// keeps that back-reference current across moves and retires.
type Registry struct {
	mu      sync.Mutex
	backend Backend
	owners  map[PinID]token
}

// NewRegistry builds the ownership table over a port's backend. Ports embed
// the result:
//
//	p := &Port{...}
//	p.Registry = hal.NewRegistry(p)
func NewRegistry(b Backend) *Registry {
	return &Registry{backend: b, owners: make(map[PinID]token)}
}

// Acquire mints the exclusive token for one pin.
func (r *Registry) Acquire(id PinID) (*PinAccess, error) {
	const op = "hal.acquire"
	if !r.backend.HasPin(id) {
		return nil, errcode.Pin(errcode.UnknownPin, op, int(id))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.owners[id]; held {
		return nil, errcode.Pin(errcode.PinInUse, op, int(id))
	}
	a := &PinAccess{reg: r, id: id, valid: true}
	r.owners[id] = a
	return a, nil
}

// AcquireSet mints one token owning the ordered pin set. All pins are claimed
// atomically; if any pin is unknown, duplicated or held, nothing is claimed.
func (r *Registry) AcquireSet(ids ...PinID) (*PinSetAccess, error) {
	const op = "hal.acquireset"
	if len(ids) == 0 {
		return nil, errcode.New(errcode.InvalidParams, op, "empty pin set")
	}
	seen := make(map[PinID]struct{}, len(ids))
	for _, id := range ids {
		if !r.backend.HasPin(id) {
			return nil, errcode.Pin(errcode.UnknownPin, op, int(id))
		}
		if _, dup := seen[id]; dup {
			return nil, errcode.Pin(errcode.InvalidParams, op, int(id))
		}
		seen[id] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if _, held := r.owners[id]; held {
			return nil, errcode.Pin(errcode.PinInUse, op, int(id))
		}
	}
	s := &PinSetAccess{reg: r, ids: append([]PinID(nil), ids...), valid: true}
	for _, id := range ids {
		r.owners[id] = s
	}
	return s, nil
}

// Invalidate kills whatever token currently holds the pin. Ports call this
// when a pin is reconfigured out from under the HAL (external takeover); the
// token's operations fail with errcode.InvalidAccess from then on.
func (r *Registry) Invalidate(id PinID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tok, held := r.owners[id]; held {
		tok.invalidate()
		// A set token may hold other pins; drop every entry it owned so the
		// whole set returns to "no owner".
		for pid, t := range r.owners {
			if t == tok {
				delete(r.owners, pid)
			}
		}
	}
}

// Held reports whether any live token owns the pin.
func (r *Registry) Held(id PinID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, held := r.owners[id]
	return held
}

// releaseLocked removes ownership entries that point at tok.
// Caller holds r.mu.
func (r *Registry) releaseLocked(tok token, ids []PinID) {
	for _, id := range ids {
		if r.owners[id] == tok {
			delete(r.owners, id)
		}
	}
}
