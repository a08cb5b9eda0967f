package cache

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// inflight implements the Inflight Table of spec §4.2 over
// golang.org/x/sync/singleflight, which already gives "N concurrent
// callers for the same key share one loader invocation and one
// result" for free. What singleflight does not give us is visibility,
// from inside the shared call, into whether the key was invalidated
// (del/reset/reconnect) while the load was in flight — Group.Forget
// only stops *future* Do calls from joining, it never informs a
// call already in progress. A generation counter closes that gap: the
// shared closure snapshots the current generation when the load starts
// and re-checks it immediately before deciding whether the result
// should be written through to the Store.
type inflight struct {
	group singleflight.Group

	mu       sync.Mutex
	epoch    uint64            // bumped by invalidateAll (reset)
	keyEpoch map[string]uint64 // bumped by invalidateKey (del)
}

func newInflight() *inflight {
	return &inflight{keyEpoch: make(map[string]uint64)}
}

// generation snapshots the current validity token for key. Callers
// should take this snapshot from inside the singleflight closure, at
// the moment the load actually begins, since only one caller's
// closure ever executes per coalesced group.
func (t *inflight) generation(key string) (global uint64, perKey uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.epoch, t.keyEpoch[key]
}

// stillValid reports whether key's snapshot is still current, i.e. no
// del(key) or reset() happened since it was taken.
func (t *inflight) stillValid(key string, global, perKey uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.epoch == global && t.keyEpoch[key] == perKey
}

// invalidateKey bumps key's generation, causing any in-flight load for
// key to skip its store-through step (spec §4.2 steps 4/6).
func (t *inflight) invalidateKey(key string) {
	t.mu.Lock()
	t.keyEpoch[key]++
	t.mu.Unlock()
	t.group.Forget(key)
}

// invalidateAll bumps the global generation, covering every key
// currently in flight (spec §4.4: reconnect clears the Inflight Table).
func (t *inflight) invalidateAll() {
	t.mu.Lock()
	t.epoch++
	t.mu.Unlock()
}

// do coalesces concurrent loads for key. shared is true when the result
// was handed to more than one caller, including the caller whose
// closure ran the load.
func (t *inflight) do(key string, fn func() (any, error)) (v any, shared bool, err error) {
	res, err, shared := t.group.Do(key, fn)
	return res, shared, err
}
