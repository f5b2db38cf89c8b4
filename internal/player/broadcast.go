package player

import (
	"sync"

	"github.com/desertthunder/fitplay/internal/models"
)

// Broadcaster fans snapshots out to subscribers.
//
// Slow subscribers only ever miss intermediate snapshots: a full buffer has its oldest entry
// dropped so the latest state always gets through.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan models.Snapshot
	next int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: map[int]chan models.Snapshot{}}
}

// Subscribe returns a snapshot channel and a function that closes it.
func (b *Broadcaster) Subscribe() (<-chan models.Snapshot, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan models.Snapshot, 8)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *Broadcaster) Publish(s models.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
