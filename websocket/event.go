////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/thedevsaddam/gojsonq"
	"gitlab.com/elixxir/teamsync/users"
)

// Server event names.
const (
	UserUpdated = "user_updated"
	Typing      = "typing"
	Hello       = "hello"
)

// Client actions.
const (
	authChallengeAction = "authentication_challenge"
	userTypingAction    = "user_typing"
)

// Broadcast describes who an event was sent to.
type Broadcast struct {
	OmitUsers map[string]bool `json:"omit_users"`
	UserID    string          `json:"user_id"`
	ChannelID string          `json:"channel_id"`
	TeamID    string          `json:"team_id"`
}

// Event is a single event frame sent by the server.
type Event struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Broadcast Broadcast       `json:"broadcast"`
	Seq       int64           `json:"seq"`

	raw []byte
}

// String stringer interface implementation
func (e *Event) String() string {
	return fmt.Sprintf("Event{%s, seq %d}", e.Event, e.Seq)
}

// decodeEvent parses an event frame.
func decodeEvent(frame []byte) (*Event, error) {
	evt := &Event{raw: frame}
	if err := json.Unmarshal(frame, evt); err != nil {
		return nil, errors.Errorf("failed to decode event frame: %+v", err)
	}
	return evt, nil
}

// GetString returns the string at the dotted path of the frame (for example
// "data.user_id" or "broadcast.channel_id"), or "" if it is absent.
func (e *Event) GetString(path string) string {
	value := gojsonq.New().FromString(string(e.raw)).Find(path)
	s, _ := value.(string)
	return s
}

// User decodes the user of a user_updated event.
func (e *Event) User() (users.UserProfile, error) {
	var data struct {
		User *users.UserProfile `json:"user"`
	}
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return users.UserProfile{}, errors.Errorf(
			"failed to decode user of %s: %+v", e, err)
	}
	if data.User == nil {
		return users.UserProfile{}, errors.Errorf("%s has no user", e)
	}
	return *data.User, nil
}

// TypingMessage extracts the fields of a typing event.
func (e *Event) TypingMessage() users.TypingMessage {
	return users.TypingMessage{
		ChannelID: e.GetString("broadcast.channel_id"),
		ParentID:  e.GetString("data.parent_id"),
		UserID:    e.GetString("data.user_id"),
	}
}

// action is a frame sent by the client.
type action struct {
	Action string      `json:"action"`
	Seq    int64       `json:"seq"`
	Data   interface{} `json:"data"`
}
