package store

import "sync"

// broker fans out change notifications to subscribers. Each subscriber
// channel has a buffer of one and sends never block, so a burst of mutations
// collapses into a single pending wake-up for a slow reader.
type broker struct {
	mu          sync.RWMutex
	subscribers map[<-chan struct{}]chan struct{}
}

func newBroker() *broker {
	return &broker{subscribers: make(map[<-chan struct{}]chan struct{})}
}

func (b *broker) subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.subscribers[ch] = ch
	b.mu.Unlock()
	return ch
}

// unsubscribe removes and closes ch. Unknown channels are ignored.
func (b *broker) unsubscribe(ch <-chan struct{}) {
	b.mu.Lock()
	full, ok := b.subscribers[ch]
	delete(b.subscribers, ch)
	b.mu.Unlock()
	if ok {
		close(full)
	}
}

func (b *broker) broadcast() {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- struct{}{}:
		default:
			// A wake-up is already pending.
		}
	}
}
