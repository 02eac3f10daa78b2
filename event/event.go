////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package event is the process-wide bus used to tell observers (typing
// indicators, views) about ephemeral state changes.
package event

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/teamsync/stoppable"
)

const queueSize = 1000

// Event is a single broadcast on the bus.
type Event struct {
	Type string
	Data interface{}
}

// String stringer interface implementation
func (e Event) String() string {
	return fmt.Sprintf("Event(%s, %+v)", e.Type, e.Data)
}

// Manager holds the state of the bus.
type Manager struct {
	eventCh chan Event
	cbs     sync.Map
}

// NewManager builds an empty bus. Events are only delivered once
// EventService has been started.
func NewManager() *Manager {
	return &Manager{
		eventCh: make(chan Event, queueSize),
	}
}

// Emit queues an event for delivery. When the queue is full the event is
// dropped.
func (m *Manager) Emit(eventType string, data interface{}) {
	evt := Event{Type: eventType, Data: data}
	select {
	case m.eventCh <- evt:
		jww.TRACE.Printf("Event emitted: %s", evt)
	default:
		jww.ERROR.Printf("Event queue full, unable to emit: %s", evt)
	}
}

// RegisterCallback records the function under the given name. Names are
// unique.
func (m *Manager) RegisterCallback(name string, cb Callback) error {
	if _, exists := m.cbs.LoadOrStore(name, cb); exists {
		return errors.Errorf("Key %s already exists as event callback", name)
	}
	return nil
}

// UnregisterCallback deletes the callback registered under name.
func (m *Manager) UnregisterCallback(name string) {
	m.cbs.Delete(name)
}

// EventService starts the dispatch goroutine.
func (m *Manager) EventService() (stoppable.Stoppable, error) {
	stop := stoppable.NewSingle("EventDispatch")
	go m.dispatch(stop)
	return stop, nil
}

// dispatch hands every queued event to every registered callback, in order,
// on a single goroutine.
func (m *Manager) dispatch(stop *stoppable.Single) {
	jww.DEBUG.Print("Event dispatch routine started")
	for {
		select {
		case <-stop.Quit():
			jww.DEBUG.Print("Stopping event dispatch")
			stop.ToStopped()
			return
		case evt := <-m.eventCh:
			jww.TRACE.Printf("Dispatching event: %s", evt)
			// Callbacks run inline. A slow callback holds up the queue,
			// and Emit logs once it overflows.
			m.cbs.Range(func(_, cb interface{}) bool {
				cb.(Callback)(evt)
				return true
			})
		}
	}
}
