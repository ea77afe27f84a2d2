package livefeed

import "sync"

// Handler receives events on the handle's read goroutine.
type Handler func(Event)

// StateHandler receives connection state changes.
type StateHandler func(State)

type handlerEntry struct {
	id   int
	kind Kind
	fn   Handler
}

type stateEntry struct {
	id int
	fn StateHandler
}

// observers is looked up at dispatch time so a handler replaced after
// subscribing still receives the next event.
type observers struct {
	mu     sync.RWMutex
	nextID int
	events []handlerEntry
	states []stateEntry
}

func (o *observers) add(kind Kind, fn Handler) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	o.events = append(o.events, handlerEntry{id: o.nextID, kind: kind, fn: fn})
	return o.nextID
}

func (o *observers) addState(fn StateHandler) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	o.states = append(o.states, stateEntry{id: o.nextID, fn: fn})
	return o.nextID
}

func (o *observers) remove(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, e := range o.events {
		if e.id == id {
			o.events = append(o.events[:i], o.events[i+1:]...)
			return
		}
	}
	for i, e := range o.states {
		if e.id == id {
			o.states = append(o.states[:i], o.states[i+1:]...)
			return
		}
	}
}

func (o *observers) dispatch(ev Event) {
	o.mu.RLock()
	entries := make([]handlerEntry, 0, len(o.events))
	for _, e := range o.events {
		if e.kind == ev.Kind {
			entries = append(entries, e)
		}
	}
	o.mu.RUnlock()
	for _, e := range entries {
		if e.fn != nil {
			e.fn(ev)
		}
	}
}

func (o *observers) dispatchState(s State) {
	o.mu.RLock()
	entries := make([]stateEntry, len(o.states))
	copy(entries, o.states)
	o.mu.RUnlock()
	for _, e := range entries {
		if e.fn != nil {
			e.fn(s)
		}
	}
}
