package broker

import (
	"context"
	"sync"
)

var _ Publisher = &Memory{}
var _ Subscriber = &Memory{}

// Memory is an in-process Publisher/Subscriber used in tests and single-node
// deployments without RabbitMQ
type Memory struct {
	mu     sync.Mutex
	subs   map[string][]chan Event
	Events []Event
}

// NewMemoryBroker returns an in-process domain event broker
func NewMemoryBroker() *Memory {
	return &Memory{
		subs: make(map[string][]chan Event),
	}
}

// Close is a no-op for the in-process broker
func (m *Memory) Close() {}

// Publish records the event and fans it out to subscribers of the centro
func (m *Memory) Publish(e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, e)
	for _, ch := range m.subs[e.CentroID] {
		select {
		case ch <- e:
		default:
			// subscriber not draining, drop instead of blocking the write path
		}
	}
	return nil
}

// Receive returns a channel of events concerning the given centro
func (m *Memory) Receive(ctx context.Context, centroID string) (<-chan Event, error) {
	ch := make(chan Event, 16)
	m.mu.Lock()
	m.subs[centroID] = append(m.subs[centroID], ch)
	m.mu.Unlock()
	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		chans := m.subs[centroID]
		for i, c := range chans {
			if c == ch {
				m.subs[centroID] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
	}()
	return ch, nil
}
