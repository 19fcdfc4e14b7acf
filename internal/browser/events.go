package browser

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// EventKind classifies a captured page event.
type EventKind string

const (
	EventNavigation EventKind = "navigation"
	EventClick      EventKind = "click"
	EventInput      EventKind = "input"
	EventChange     EventKind = "change"
)

// Event is one observation from a browser session.
// Target is the element id (or name) for DOM events and the URL for navigations.
type Event struct {
	SessionID string    `json:"session_id"`
	Kind      EventKind `json:"kind"`
	Target    string    `json:"target"`
	Value     string    `json:"value,omitempty"`
	At        time.Time `json:"at"`
}

// EventSink receives events from the session event stream.
type EventSink interface {
	Record(Event)
}

// Recorder is an in-memory EventSink safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends ev.
func (r *Recorder) Record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of kind hit target. An empty target matches any.
func (r *Recorder) Count(kind EventKind, target string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind && (target == "" || ev.Target == target) {
			n++
		}
	}
	return n
}

// Last returns the most recent event of kind on target.
func (r *Recorder) Last(kind EventKind, target string) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		ev := r.events[i]
		if ev.Kind == kind && (target == "" || ev.Target == target) {
			return ev, true
		}
	}
	return Event{}, false
}

// bindingName is the CDP runtime binding the DOM hook reports through.
// Bindings survive navigation, so the submit click is delivered even though
// the page unloads right after it.
const bindingName = "__cadastroEmit"

// domHookScript runs in every new document of a session.
const domHookScript = `(() => {
	if (window.__cadastroHooked) return;
	window.__cadastroHooked = true;
	const emit = (type, target, value) => {
		try {
			const fn = window.` + bindingName + `;
			if (typeof fn !== 'function') return;
			const t = target || {};
			fn(JSON.stringify({ type, id: t.id || t.name || '', value, ts: Date.now() }));
		} catch (e) {}
	};
	document.addEventListener('click', (ev) => emit('click', ev.target, ''), true);
	document.addEventListener('input', (ev) => {
		const t = ev.target || {};
		emit('input', t, t.type === 'checkbox' ? String(!!t.checked) : (t.value || ''));
	}, true);
	document.addEventListener('change', (ev) => {
		const t = ev.target || {};
		emit('change', t, t.type === 'checkbox' ? String(!!t.checked) : (t.value || ''));
	}, true);
})();`

type bindingPayload struct {
	Type  string  `json:"type"`
	ID    string  `json:"id"`
	Value string  `json:"value"`
	TS    float64 `json:"ts"`
}

// decodeBindingPayload turns a hook payload into an Event.
func decodeBindingPayload(sessionID, payload string) (Event, error) {
	var p bindingPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return Event{}, fmt.Errorf("decode dom event: %w", err)
	}

	var kind EventKind
	switch p.Type {
	case "click":
		kind = EventClick
	case "input":
		kind = EventInput
	case "change":
		kind = EventChange
	default:
		return Event{}, fmt.Errorf("unknown dom event type %q", p.Type)
	}

	at := time.Now()
	if p.TS > 0 {
		at = time.UnixMilli(int64(p.TS))
	}
	return Event{SessionID: sessionID, Kind: kind, Target: p.ID, Value: p.Value, At: at}, nil
}
