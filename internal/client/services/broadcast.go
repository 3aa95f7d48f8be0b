package services

import "sync"

// Broadcaster is an in-process pub/sub channel between rate limiters and
// sessions sharing one backing store. It plays the role of a storage-change
// event: a subscriber receives the user id whose rate-limit state changed
// and re-reads it from the store. Delivery is advisory, not transactional;
// notifications to a slow subscriber are dropped rather than blocking the
// publisher.
type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan string
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan string)}
}

// Subscribe returns a channel of user ids and a cancel function. The channel
// is closed on cancel.
func (b *Broadcaster) Subscribe() (<-chan string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan string, 8)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish notifies all subscribers that userID's state changed.
func (b *Broadcaster) Publish(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- userID:
		default:
		}
	}
}
