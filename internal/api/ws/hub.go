package ws

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/browserpike/backend/internal/domain/browse"
	"github.com/browserpike/backend/internal/domain/sandbox"
	"github.com/browserpike/backend/internal/shared/id"
)

// Event types pushed to the page
const (
	EventSystem         = "system"
	EventBundleReleased = "bundle_released"
	EventTreeReloaded   = "tree_reloaded"
	EventPong           = "pong"
	EventError          = "error"
)

const subscriberBuffer = 16

// Event is one message on the event stream
type Event struct {
	Type      string      `json:"type"`
	Message   string      `json:"message,omitempty"`
	BundleID  id.BundleID `json:"bundle_id,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Files     int         `json:"files,omitempty"`
	Dirs      int         `json:"dirs,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func newEvent(kind string) Event {
	return Event{Type: kind, Timestamp: time.Now().Unix()}
}

// BundleReleased reports a bundle the server dropped on the visitor's behalf
func BundleReleased(bundleID id.BundleID, reason string) Event {
	ev := newEvent(EventBundleReleased)
	ev.BundleID = bundleID
	ev.Reason = reason
	return ev
}

// TreeReloaded reports a rebuilt repository tree
func TreeReloaded(files, dirs int) Event {
	ev := newEvent(EventTreeReloaded)
	ev.Files = files
	ev.Dirs = dirs
	return ev
}

// Subscription receives the events of one session
type Subscription struct {
	C <-chan Event

	hub     *Hub
	session string
	ch      chan Event
	once    sync.Once
}

// Close detaches the subscription from the hub
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub fans events out to the connections of each session. Slow readers lose
// events rather than block publishers.
type Hub struct {
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{logger: logger, subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe opens a subscription for session
func (h *Hub) Subscribe(session string) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{C: ch, hub: h, session: session, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[session]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[session] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[sub.session]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.session)
	}
	close(sub.ch)
}

// Publish sends ev to every connection of session
func (h *Hub) Publish(session string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[session] {
		h.deliver(sub, ev)
	}
}

// Broadcast sends ev to every connection
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.subs {
		for sub := range set {
			h.deliver(sub, ev)
		}
	}
}

func (h *Hub) deliver(sub *Subscription, ev Event) {
	select {
	case sub.ch <- ev:
	default:
		h.logger.Warn("dropping event for slow subscriber",
			zap.String("session", sub.session),
			zap.String("type", ev.Type),
		)
	}
}

// Len returns the number of open subscriptions
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}

// ReleaseHook returns a sandbox release observer that detaches the bundle
// from its session and tells that session's pages
func (h *Hub) ReleaseHook(sessions *browse.Manager) sandbox.ReleaseFunc {
	return func(bundleID id.BundleID, reason string) {
		if owner, ok := sessions.Released(bundleID); ok {
			h.Publish(owner, BundleReleased(bundleID, reason))
		}
	}
}
