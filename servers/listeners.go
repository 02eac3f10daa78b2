////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package servers

import (
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/teamsync/users"
	"gitlab.com/elixxir/teamsync/websocket"
)

// userUpdatedListener hands user_updated events to the reconciler.
type userUpdatedListener struct {
	serverURL string
	r         *users.Reconciler
}

// Hear is called for every user_updated event of the server.
func (l *userUpdatedListener) Hear(evt *websocket.Event) {
	u, err := evt.User()
	if err != nil {
		jww.WARN.Printf("[SERVERS] Dropping user_updated on %s: %+v",
			l.serverURL, err)
		return
	}

	res := l.r.HandleUserUpdatedEvent(l.serverURL, u)
	jww.DEBUG.Printf("[SERVERS] user_updated of %s on %s: %s %s",
		u, l.serverURL, res.Outcome, res.Reason)
}

// typingListener hands typing events to the reconciler.
type typingListener struct {
	serverURL string
	r         *users.Reconciler
}

// Hear is called for every typing event of the server.
func (l *typingListener) Hear(evt *websocket.Event) {
	msg := evt.TypingMessage()
	if msg.UserID == "" || msg.ChannelID == "" {
		jww.WARN.Printf("[SERVERS] Dropping malformed %s on %s",
			evt, l.serverURL)
		return
	}

	res := l.r.HandleUserTypingEvent(l.serverURL, msg)
	jww.TRACE.Printf("[SERVERS] typing of %s in %s on %s: %s %s",
		msg.UserID, msg.ChannelID, l.serverURL, res.Outcome, res.Reason)
}

// Connect opens the websocket of the server and routes its user_updated and
// typing events to the reconciler.
func (m *Manager) Connect(serverURL string, r *users.Reconciler) error {
	s, exists := m.getServer(serverURL)
	if !exists {
		return errors.WithMessage(ServerDoesNotExistErr, serverURL)
	}

	lm := websocket.NewListenerMap()
	lm.Register(websocket.UserUpdated,
		&userUpdatedListener{serverURL: s.url, r: r})
	lm.Register(websocket.Typing, &typingListener{serverURL: s.url, r: r})

	ws, err := websocket.Connect(s.url, s.token, lm)
	if err != nil {
		return err
	}

	m.mux.Lock()
	defer m.mux.Unlock()
	if s.ws != nil {
		_ = s.ws.Close()
	}
	s.ws = ws
	return nil
}
