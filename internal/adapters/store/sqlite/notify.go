package sqlite

import "sync"

const (
	topicSources  = "sources"
	topicSessions = "sessions"
)

func topicActivities(sessionName string) string {
	return "activities/" + sessionName
}

// hub fans out change signals per topic. Signal channels have capacity
// one and sends never block, so a slow subscriber just coalesces
// intermediate notifications.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[int]chan struct{}
	next int
}

func newHub() *hub {
	return &hub{subs: map[string]map[int]chan struct{}{}}
}

func (h *hub) subscribe(topic string) (int, chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	id := h.next
	signal := make(chan struct{}, 1)
	if h.subs[topic] == nil {
		h.subs[topic] = map[int]chan struct{}{}
	}
	h.subs[topic][id] = signal
	return id, signal
}

func (h *hub) unsubscribe(topic string, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subs[topic]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(h.subs, topic)
		}
	}
}

func (h *hub) publish(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, signal := range h.subs[topic] {
		select {
		case signal <- struct{}{}:
		default:
		}
	}
}
