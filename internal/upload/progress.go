package upload

import "sync"

// Progress is an observable percentage of files completed in the current batch.
type Progress struct {
	mu     sync.Mutex
	value  int
	nextID int
	subs   map[int]chan int
}

func NewProgress() *Progress {
	return &Progress{subs: make(map[int]chan int)}
}

func (p *Progress) Value() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Set publishes v to every subscriber. Slow subscribers only see the latest value.
func (p *Progress) Set(v int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.value = v
	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// Subscribe returns a channel receiving the current value and every later update.
func (p *Progress) Subscribe() (<-chan int, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	ch := make(chan int, 1)
	ch <- p.value
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subs, id)
			close(ch)
		})
	}
}
