////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package websocket

import (
	"strconv"
	"sync"

	jww "github.com/spf13/jwalterweatherman"
)

// AnyEvent registers a listener for every event.
const AnyEvent = ""

// Listener receives server events.
type Listener interface {
	Hear(evt *Event)
}

// ListenerFunc adapts a plain function to a Listener.
type ListenerFunc func(evt *Event)

// Hear calls f(evt).
func (f ListenerFunc) Hear(evt *Event) {
	f(evt)
}

type listenerRecord struct {
	l  Listener
	id string
}

// ListenerMap routes events to the listeners registered for their name.
type ListenerMap struct {
	listeners map[string][]*listenerRecord
	lastID    int
	mux       sync.RWMutex
}

// NewListenerMap returns an empty ListenerMap.
func NewListenerMap() *ListenerMap {
	return &ListenerMap{
		listeners: make(map[string][]*listenerRecord),
	}
}

// Register adds a listener for the named event, or for all events if
// eventName is AnyEvent. The returned ID can be passed to Unregister.
//
// If an event matches multiple listeners, all of them will hear it.
func (lm *ListenerMap) Register(eventName string, newListener Listener) string {
	lm.mux.Lock()
	defer lm.mux.Unlock()

	lm.lastID++
	record := &listenerRecord{
		l:  newListener,
		id: strconv.Itoa(lm.lastID),
	}
	lm.listeners[eventName] = append(lm.listeners[eventName], record)

	return record.id
}

// Unregister removes the listener with the given ID.
func (lm *ListenerMap) Unregister(listenerID string) {
	lm.mux.Lock()
	defer lm.mux.Unlock()

	for eventName, perName := range lm.listeners {
		for i, record := range perName {
			if record.id == listenerID {
				lm.listeners[eventName] = append(perName[:i:i], perName[i+1:]...)
				// IDs are unique
				return
			}
		}
	}
}

// Speak hands the event to every matching listener.
func (lm *ListenerMap) Speak(evt *Event) {
	lm.mux.RLock()
	matched := make([]*listenerRecord, 0,
		len(lm.listeners[evt.Event])+len(lm.listeners[AnyEvent]))
	matched = append(matched, lm.listeners[evt.Event]...)
	matched = append(matched, lm.listeners[AnyEvent]...)
	lm.mux.RUnlock()

	if len(matched) == 0 {
		jww.TRACE.Printf("[WS] No listener for event %q", evt.Event)
		return
	}

	for _, record := range matched {
		jww.TRACE.Printf("[WS] Listener %s hearing %q", record.id, evt.Event)
		record.l.Hear(evt)
	}
}
