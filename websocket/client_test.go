////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/stretchr/testify/require"
	"gitlab.com/elixxir/teamsync/stoppable"
	"gitlab.com/elixxir/teamsync/users"
)

func TestMain(m *testing.M) {
	jww.SetStdoutThreshold(jww.LevelTrace)
	os.Exit(m.Run())
}

const typingFrame = `{"event":"typing","data":{"parent_id":"root1",` +
	`"user_id":"u1"},"broadcast":{"omit_users":{"u1":true},"user_id":"",` +
	`"channel_id":"ch1","team_id":""},"seq":3}`

// Pushing hangUp to a fakeServer drops the connection.
const hangUp = ""

// fakeServer accepts one websocket connection, records the actions it
// receives and writes the frames pushed to send.
type fakeServer struct {
	*httptest.Server
	header  chan http.Header
	actions chan action
	send    chan string
}

func newFakeServer(t *testing.T) *fakeServer {
	fs := &fakeServer{
		header:  make(chan http.Header, 1),
		actions: make(chan action, 10),
		send:    make(chan string, 10),
	}

	upgrader := websocket.Upgrader{}
	fs.Server = httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != websocketRoute {
				http.NotFound(w, r)
				return
			}
			fs.header <- r.Header
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()

			go func() {
				for frame := range fs.send {
					if frame == hangUp {
						_ = conn.Close()
						return
					}
					if conn.WriteMessage(websocket.TextMessage,
						[]byte(frame)) != nil {
						return
					}
				}
			}()

			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var a action
				if json.Unmarshal(data, &a) == nil {
					fs.actions <- a
				}
			}
		}))
	t.Cleanup(fs.Server.Close)
	return fs
}

func (fs *fakeServer) nextAction(t *testing.T) action {
	select {
	case a := <-fs.actions:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for an action")
	}
	return action{}
}

// Tests that Connect authenticates with the token, both in the handshake
// header and in the first action.
func TestConnect_Authenticates(t *testing.T) {
	fs := newFakeServer(t)

	c, err := Connect(fs.URL, "secret", NewListenerMap())
	require.NoError(t, err)
	defer c.Close()

	header := <-fs.header
	require.Equal(t, "Bearer secret", header.Get("Authorization"))

	a := fs.nextAction(t)
	require.Equal(t, authChallengeAction, a.Action)
	require.Equal(t, int64(1), a.Seq)
	require.Equal(t, map[string]interface{}{"token": "secret"}, a.Data)
}

// Tests that typing frames reach the listener registered for them and that
// the typing fields are extracted.
func TestClient_DispatchesEvents(t *testing.T) {
	fs := newFakeServer(t)
	lm := NewListenerMap()

	received := make(chan *Event, 1)
	lm.Register(Typing, ListenerFunc(func(evt *Event) { received <- evt }))
	others := make(chan *Event, 1)
	lm.Register(UserUpdated, ListenerFunc(func(evt *Event) { others <- evt }))

	c, err := Connect(fs.URL, "secret", lm)
	require.NoError(t, err)
	defer c.Close()

	fs.send <- `{"status":"OK","seq_reply":1}`
	fs.send <- typingFrame

	select {
	case evt := <-received:
		require.Equal(t, Typing, evt.Event)
		require.Equal(t, int64(3), evt.Seq)
		require.Equal(t, "ch1", evt.Broadcast.ChannelID)
		require.Equal(t, users.TypingMessage{
			ChannelID: "ch1", ParentID: "root1", UserID: "u1"},
			evt.TypingMessage())
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the typing event")
	}

	require.Empty(t, others)
}

// Tests that SendUserTypingEvent writes user_typing actions with increasing
// sequence numbers.
func TestClient_SendUserTypingEvent(t *testing.T) {
	fs := newFakeServer(t)

	c, err := Connect(fs.URL, "secret", NewListenerMap())
	require.NoError(t, err)
	defer c.Close()
	fs.nextAction(t)

	require.NoError(t, c.SendUserTypingEvent("ch1", ""))
	require.NoError(t, c.SendUserTypingEvent("ch1", "root1"))

	first := fs.nextAction(t)
	second := fs.nextAction(t)
	require.Equal(t, userTypingAction, first.Action)
	require.Equal(t, map[string]interface{}{
		"channel_id": "ch1", "parent_id": ""}, first.Data)
	require.Equal(t, map[string]interface{}{
		"channel_id": "ch1", "parent_id": "root1"}, second.Data)
	require.Greater(t, second.Seq, first.Seq)
}

// Tests that Close stops the reader and that sends then fail.
func TestClient_Close(t *testing.T) {
	fs := newFakeServer(t)

	c, err := Connect(fs.URL, "secret", NewListenerMap())
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, stoppable.WaitForStopped(c.Stoppable(), 2*time.Second))
	require.Error(t, c.SendUserTypingEvent("ch1", ""))

	// Closing twice is harmless
	require.NoError(t, c.Close())
}

// Tests that a server hanging up stops the reader.
func TestClient_ServerHangUp(t *testing.T) {
	fs := newFakeServer(t)

	c, err := Connect(fs.URL, "secret", NewListenerMap())
	require.NoError(t, err)
	defer c.Close()

	fs.send <- hangUp
	require.NoError(t, stoppable.WaitForStopped(c.Stoppable(), 2*time.Second))
}

// Error path: bad URLs and unreachable servers.
func TestConnect_Errors(t *testing.T) {
	_, err := Connect("ftp://example.com", "secret", NewListenerMap())
	require.Error(t, err)

	fs := newFakeServer(t)
	url := fs.URL
	fs.Close()
	_, err = Connect(url, "secret", NewListenerMap())
	require.Error(t, err)
}

func TestWebsocketURL(t *testing.T) {
	tests := map[string]string{
		"https://chat.example.com":       "wss://chat.example.com/api/v4/websocket",
		"http://localhost:8065/":         "ws://localhost:8065/api/v4/websocket",
		"https://example.com/mattermost": "wss://example.com/mattermost/api/v4/websocket",
	}
	for in, expected := range tests {
		out, err := websocketURL(in)
		require.NoError(t, err)
		require.Equal(t, expected, out, in)
	}
}
