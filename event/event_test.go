////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManager_Emit(t *testing.T) {
	var mux sync.Mutex
	evts := make([]Event, 0)
	cb := func(evt Event) {
		mux.Lock()
		defer mux.Unlock()
		t.Logf("EVENT: %s", evt)
		evts = append(evts, evt)
	}

	m := NewManager()
	stop, err := m.EventService()
	require.NoError(t, err)
	defer stop.Close()

	require.NoError(t, m.RegisterCallback("test", cb))

	m.Emit(UserTyping, "a")
	m.Emit(UserStopTyping, "b")

	require.Eventually(t, func() bool {
		mux.Lock()
		defer mux.Unlock()
		return len(evts) == 2
	}, time.Second, 5*time.Millisecond)

	mux.Lock()
	require.Equal(t, Event{Type: UserTyping, Data: "a"}, evts[0])
	require.Equal(t, Event{Type: UserStopTyping, Data: "b"}, evts[1])
	mux.Unlock()

	// Nothing more arrives after unregistering
	m.UnregisterCallback("test")
	m.Emit(UserTyping, "c")
	time.Sleep(50 * time.Millisecond)

	mux.Lock()
	require.Len(t, evts, 2)
	mux.Unlock()
}

// Error path: registering the same name twice fails.
func TestManager_RegisterCallback_Duplicate(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.RegisterCallback("test", func(Event) {}))
	require.Error(t, m.RegisterCallback("test", func(Event) {}))
}

// Tests that Emit never blocks when the queue is full.
func TestManager_Emit_QueueFull(t *testing.T) {
	m := NewManager()
	for i := 0; i < queueSize+10; i++ {
		m.Emit(UserTyping, i)
	}
	require.Len(t, m.eventCh, queueSize)
}

// Tests that the dispatch routine stops when closed.
func TestManager_EventService_Stop(t *testing.T) {
	m := NewManager()
	stop, err := m.EventService()
	require.NoError(t, err)
	require.NoError(t, stop.Close())
	require.Eventually(t, stop.IsStopped, time.Second, 5*time.Millisecond)
}
