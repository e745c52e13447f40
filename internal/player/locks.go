package player

import (
	"sort"
	"sync"
)

// nameLocks serializes mutations per player name. Locks for several names
// are always taken in sorted order.
type nameLocks struct {
	mu    sync.Mutex
	locks map[string]*nameLock
}

type nameLock struct {
	sync.Mutex
	refs int
}

func newNameLocks() *nameLocks {
	return &nameLocks{locks: make(map[string]*nameLock)}
}

// lock acquires every name and returns the matching unlock.
func (n *nameLocks) lock(names ...string) func() {
	uniq := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			uniq = append(uniq, name)
		}
	}
	sort.Strings(uniq)

	held := make([]*nameLock, 0, len(uniq))
	for _, name := range uniq {
		n.mu.Lock()
		l, ok := n.locks[name]
		if !ok {
			l = &nameLock{}
			n.locks[name] = l
		}
		l.refs++
		n.mu.Unlock()

		l.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			n.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(n.locks, uniq[i])
			}
			n.mu.Unlock()
		}
	}
}
