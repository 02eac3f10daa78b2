////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package websocket

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	heard []string
}

func (r *recorder) Hear(evt *Event) {
	r.heard = append(r.heard, evt.Event)
}

// Tests that listeners hear their own events and wildcard listeners hear
// everything.
func TestListenerMap_Speak(t *testing.T) {
	lm := NewListenerMap()
	typing, all := &recorder{}, &recorder{}
	lm.Register(Typing, typing)
	lm.Register(AnyEvent, all)

	lm.Speak(&Event{Event: Typing})
	lm.Speak(&Event{Event: UserUpdated})

	require.Equal(t, []string{Typing}, typing.heard)
	require.Equal(t, []string{Typing, UserUpdated}, all.heard)
}

// Tests that unregistered listeners hear nothing more.
func TestListenerMap_Unregister(t *testing.T) {
	lm := NewListenerMap()
	first, second := &recorder{}, &recorder{}
	id := lm.Register(Typing, first)
	lm.Register(Typing, second)
	require.NotEmpty(t, id)

	lm.Unregister(id)
	lm.Speak(&Event{Event: Typing})

	require.Empty(t, first.heard)
	require.Equal(t, []string{Typing}, second.heard)

	// Unknown IDs are ignored
	lm.Unregister("nope")
}

// Tests the user_updated payload decoding.
func TestEvent_User(t *testing.T) {
	evt, err := decodeEvent([]byte(`{"event":"user_updated","data":{"user":` +
		`{"id":"u1","username":"alice","update_at":7,"notify_props":{}}},` +
		`"broadcast":{},"seq":1}`))
	require.NoError(t, err)

	u, err := evt.User()
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, int64(7), u.UpdateAt)
	require.Empty(t, u.NotifyProps)
	require.Equal(t, "u1", evt.GetString("data.user.id"))
	require.Equal(t, "", evt.GetString("data.user.missing"))

	evt, err = decodeEvent([]byte(`{"event":"user_updated","data":{}}`))
	require.NoError(t, err)
	_, err = evt.User()
	require.Error(t, err)

	_, err = decodeEvent([]byte(`not json`))
	require.Error(t, err)
}
