////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package websocket maintains the event connection to a single server.
package websocket

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/teamsync/stoppable"
	"gitlab.com/xx_network/primitives/netTime"
)

const (
	websocketRoute = "/api/v4/websocket"

	// Time allowed to write a single frame.
	writeWait = 10 * time.Second

	// Frames larger than this are refused.
	maxFrameSize = 1 << 20
)

// Error messages.
const (
	parseURLErr = "[WS] failed to parse server URL %q: %+v"
	dialErr     = "[WS] failed to connect to %s: %+v"
	sendErr     = "[WS] failed to send %s to %s: %+v"
	closedErr   = "[WS] connection to %s is closed"
)

// Client is an authenticated websocket connection to a server. Inbound events
// are handed to the listeners of its ListenerMap.
type Client struct {
	serverURL string
	conn      *websocket.Conn
	listeners *ListenerMap
	stop      *stoppable.Single

	seq      int64
	writeMux sync.Mutex
	close    sync.Once
}

// Connect dials the server's websocket, sends the authentication challenge
// and starts reading events. Close must be called to release the connection.
func Connect(serverURL, token string, listeners *ListenerMap) (*Client, error) {
	wsURL, err := websocketURL(serverURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		return nil, errors.Errorf(dialErr, wsURL, err)
	}
	conn.SetReadLimit(maxFrameSize)

	c := &Client{
		serverURL: serverURL,
		conn:      conn,
		listeners: listeners,
		stop:      stoppable.NewSingle("WebsocketReader:" + serverURL),
	}

	err = c.sendAction(authChallengeAction, map[string]string{"token": token})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	go c.readEvents()

	jww.INFO.Printf("[WS] Connected to %s", wsURL)
	return c, nil
}

// websocketURL swaps the scheme of the server URL for its websocket
// equivalent and appends the websocket route.
func websocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", errors.Errorf(parseURLErr, serverURL, err)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", errors.Errorf(parseURLErr, serverURL,
			errors.Errorf("unsupported scheme %q", u.Scheme))
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + websocketRoute

	return u.String(), nil
}

// ServerURL returns the URL of the server the client is connected to.
func (c *Client) ServerURL() string {
	return c.serverURL
}

// Stoppable returns the handle of the reader goroutine.
func (c *Client) Stoppable() stoppable.Stoppable {
	return c.stop
}

// SendUserTypingEvent tells the server the local user is typing in the
// channel, or in the thread rooted at parentID if it is not empty.
func (c *Client) SendUserTypingEvent(channelID, parentID string) error {
	return c.sendAction(userTypingAction, map[string]string{
		"channel_id": channelID,
		"parent_id":  parentID,
	})
}

// sendAction writes an action frame with the next sequence number.
func (c *Client) sendAction(name string, data interface{}) error {
	if !c.stop.IsRunning() {
		return errors.Errorf(closedErr, c.serverURL)
	}

	frame, err := json.Marshal(action{
		Action: name,
		Seq:    atomic.AddInt64(&c.seq, 1),
		Data:   data,
	})
	if err != nil {
		return errors.Errorf(sendErr, name, c.serverURL, err)
	}

	c.writeMux.Lock()
	defer c.writeMux.Unlock()

	err = c.conn.SetWriteDeadline(netTime.Now().Add(writeWait))
	if err == nil {
		err = c.conn.WriteMessage(websocket.TextMessage, frame)
	}
	if err != nil {
		return errors.Errorf(sendErr, name, c.serverURL, err)
	}

	jww.TRACE.Printf("[WS] Sent %s to %s", name, c.serverURL)
	return nil
}

// readEvents reads frames until the connection fails or the client is
// closed.
func (c *Client) readEvents() {
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stop.Quit():
				jww.DEBUG.Printf("[WS] Reader of %s stopping", c.serverURL)
			default:
				jww.ERROR.Printf("[WS] Lost connection to %s: %+v",
					c.serverURL, err)
				_ = c.stop.Close()
				_ = c.conn.Close()
			}
			c.stop.ToStopped()
			return
		}

		c.handleFrame(frame)
	}
}

// handleFrame decodes a frame and hands events to the listeners. Replies to
// actions carry no event name and are only logged.
func (c *Client) handleFrame(frame []byte) {
	evt, err := decodeEvent(frame)
	if err != nil {
		jww.WARN.Printf("[WS] Dropping frame from %s: %+v", c.serverURL, err)
		return
	}

	if evt.Event == "" {
		jww.TRACE.Printf("[WS] Reply from %s: %s", c.serverURL, frame)
		return
	}

	jww.TRACE.Printf("[WS] Received %s from %s", evt, c.serverURL)
	c.listeners.Speak(evt)
}

// Close stops the reader and closes the connection.
func (c *Client) Close() error {
	var err error
	c.close.Do(func() {
		if c.stop.IsRunning() {
			_ = c.stop.Close()
		}

		c.writeMux.Lock()
		_ = c.conn.SetWriteDeadline(netTime.Now().Add(writeWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMux.Unlock()

		err = c.conn.Close()
	})
	return err
}
