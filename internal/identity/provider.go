// Package identity supplies the caller address used when composing
// transactions and notifies subscribers when it changes.
package identity

import (
	"fmt"
	"sync"
)

// Provider exposes the current caller address synchronously.
type Provider interface {
	Address() string
}

// Static is a fixed caller address.
type Static string

func (s Static) Address() string { return string(s) }

const subscriberBuffer = 4

// Watcher holds the active address and fans out changes to subscribers.
// Slow subscribers only ever miss intermediate values; the latest address
// is always available through Address.
type Watcher struct {
	mu     sync.RWMutex
	addr   string
	nextID int
	subs   map[int]chan string
}

// NewWatcher starts with addr, which may be empty when no account is active.
func NewWatcher(addr string) *Watcher {
	return &Watcher{addr: addr, subs: make(map[int]chan string)}
}

func (w *Watcher) Address() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.addr
}

// Set switches the active address. An empty address signs the account out.
func (w *Watcher) Set(addr string) error {
	if addr != "" {
		if err := ValidateAddress(addr); err != nil {
			return err
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if addr == w.addr {
		return nil
	}
	w.addr = addr
	for _, ch := range w.subs {
		select {
		case ch <- addr:
		default:
			// drop the oldest pending value so the newest one lands
			select {
			case <-ch:
			default:
			}
			ch <- addr
		}
	}
	return nil
}

// Subscribe returns a channel receiving every address change and a cancel
// function that closes it.
func (w *Watcher) Subscribe() (<-chan string, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	ch := make(chan string, subscriberBuffer)
	w.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Require returns the provider's address or an error when none is active.
func Require(p Provider) (string, error) {
	if p == nil {
		return "", fmt.Errorf("no identity provider")
	}
	addr := p.Address()
	if addr == "" {
		return "", fmt.Errorf("no active account")
	}
	return addr, nil
}
