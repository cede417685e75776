package telemetry

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/chalkan3-sloth/railguard/internal/breaker"
)

// BreakerEvent is one circuit breaker state transition, as broadcast over
// /ws/breaker-events.
type BreakerEvent struct {
	Rail string    `json:"rail"`
	From string    `json:"from"`
	To   string    `json:"to"`
	At   time.Time `json:"at"`
}

// BreakerHub fans out breaker state transitions to any number of websocket
// subscribers. Registering a breaker installs an OnStateChange callback, so
// a hub never polls — every event is pushed the instant the breaker's own
// CAS-driven transition fires.
type BreakerHub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewBreakerHub creates an empty hub.
func NewBreakerHub() *BreakerHub {
	return &BreakerHub{subs: make(map[chan []byte]struct{})}
}

// Register wires railName's breaker transitions into the hub's broadcast.
func (h *BreakerHub) Register(railName string, b *breaker.CircuitBreaker) {
	b.OnStateChange(func(from, to breaker.State) {
		ev := BreakerEvent{Rail: railName, From: from.String(), To: to.String(), At: time.Now()}
		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		h.broadcast(payload)
	})
}

func (h *BreakerHub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub <- payload:
		default:
			// Slow subscriber: drop the event rather than block the breaker
			// transition that produced it.
		}
	}
}

// subscribe registers a new channel and returns an unsubscribe func.
func (h *BreakerHub) subscribe() (chan []byte, func()) {
	ch := make(chan []byte, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}
}
