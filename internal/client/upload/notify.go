package upload

import (
	"sync"

	"github.com/dmitrijs2005/memoria/internal/client/models"
)

type subscriber struct {
	id int
	fn func(models.Event)
}

func removeSubscriber(subs []subscriber, id int) []subscriber {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// notifier fans manager-wide events out to subscribers in registration
// order. Delivery happens on the emitting task's event goroutine.
type notifier struct {
	mu   sync.RWMutex
	subs []subscriber
	next int
}

func (n *notifier) subscribe(fn func(models.Event)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.subs = append(n.subs, subscriber{id: id, fn: fn})
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.subs = removeSubscriber(n.subs, id)
	}
}

func (n *notifier) publish(ev models.Event) {
	n.mu.RLock()
	subs := n.subs
	n.mu.RUnlock()
	for _, s := range subs {
		s.fn(ev)
	}
}
