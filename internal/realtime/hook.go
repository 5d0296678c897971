package realtime

import (
	"encoding/json"
	"sync"

	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
)

// Hook narrows a channel to one message kind and decodes its payload into T.
// Activate attaches a single listener and Deactivate removes it; both can be
// called repeatedly.
type Hook[T any] struct {
	sub       Subscriber
	kind      string
	onMessage func(T)
	log       *logger.Logger

	mu          sync.Mutex
	unsubscribe func()
}

func NewHook[T any](sub Subscriber, kind string, onMessage func(T), log *logger.Logger) *Hook[T] {
	return &Hook[T]{
		sub:       sub,
		kind:      kind,
		onMessage: onMessage,
		log:       log,
	}
}

func (h *Hook[T]) Kind() string {
	return h.kind
}

func (h *Hook[T]) Activate() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unsubscribe != nil {
		return
	}
	h.unsubscribe = h.sub.Subscribe(h.handle)
}

func (h *Hook[T]) Deactivate() {
	h.mu.Lock()
	unsubscribe := h.unsubscribe
	h.unsubscribe = nil
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (h *Hook[T]) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unsubscribe != nil
}

func (h *Hook[T]) handle(msg Message) {
	if msg.Kind != h.kind {
		return
	}

	var payload T
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			h.log.Warnf("realtime hook decode failed kind=%s: %v", h.kind, err)
			return
		}
	}
	h.onMessage(payload)
}
