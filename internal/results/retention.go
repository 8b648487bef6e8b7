package results

import (
	"errors"
	"io/fs"
	"os"
	"sync"
)

// Retention holds artifact paths that were handed to a client and must be
// removed on the following poll.
type Retention struct {
	mu    sync.Mutex
	paths []string
}

func NewRetention() *Retention {
	return &Retention{}
}

// Schedule marks paths for removal on the next Sweep.
func (r *Retention) Schedule(paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, paths...)
}

// Sweep removes every scheduled path. Paths that are already gone count as
// removed. Paths that fail to remove stay scheduled and are returned joined
// into one error.
func (r *Retention) Sweep() (int, error) {
	r.mu.Lock()
	pending := r.paths
	r.paths = nil
	r.mu.Unlock()

	removed := 0
	var failed []string
	var errs []error
	for _, p := range pending {
		if err := os.RemoveAll(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			failed = append(failed, p)
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if len(failed) > 0 {
		r.Schedule(failed...)
	}
	return removed, errors.Join(errs...)
}

// Pending returns a copy of the scheduled paths.
func (r *Retention) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.paths))
	copy(out, r.paths)
	return out
}
