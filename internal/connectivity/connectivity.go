package connectivity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor holds the online signal and notifies subscribers on every
// transition.
type Monitor struct {
	logger *slog.Logger

	mu          sync.RWMutex
	online      bool
	subscribers map[int]chan bool
	nextID      int
}

func NewMonitor(initial bool, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{online: initial, logger: logger, subscribers: map[int]chan bool{}}
}

func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Set records the signal and reports whether it changed.
func (m *Monitor) Set(online bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return false
	}
	m.online = online
	for _, ch := range m.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- online
	}
	if online {
		m.logger.Info("connectivity restored")
	} else {
		m.logger.Warn("connectivity lost")
	}
	return true
}

// Subscribe returns a channel receiving the latest value after each
// transition. The cancel func closes it.
func (m *Monitor) Subscribe() (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	ch := make(chan bool, 1)
	m.subscribers[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, id)
			close(ch)
			m.mu.Unlock()
		})
	}
}

// Probe pings every target and sets the signal to whether all succeeded.
func (m *Monitor) Probe(ctx context.Context, targets ...Pinger) error {
	var errs []error
	for _, target := range targets {
		if target == nil {
			continue
		}
		if err := target.Ping(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	m.Set(err == nil)
	return err
}
