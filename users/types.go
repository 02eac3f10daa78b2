////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package users

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by a Database when the requested record does not
// exist locally.
var ErrNotFound = errors.New("record not found")

// ChannelType is the single-letter channel type used by the server.
type ChannelType string

const (
	OpenChannel    ChannelType = "O"
	PrivateChannel ChannelType = "P"
	DirectChannel  ChannelType = "D"
	GroupChannel   ChannelType = "G"
)

// Preference category and name holding the viewer's name format choice.
const (
	PreferenceCategoryDisplaySettings = "display_settings"
	PreferenceNameNameFormat          = "name_format"
)

// Teammate name display settings.
const (
	ShowUsername         = "username"
	ShowNicknameFullName = "nickname_full_name"
	ShowFullName         = "full_name"
)

// Keys read from the server's client config and license.
const (
	ConfigTimeBetweenTyping        = "TimeBetweenUserTypingUpdatesMilliseconds"
	ConfigTeammateNameDisplay      = "TeammateNameDisplay"
	ConfigLockTeammateNameDisplay  = "LockTeammateNameDisplay"
	LicenseLockTeammateNameDisplay = "LockTeammateNameDisplay"
)

// UserProfile is a user record as sent by the server. Events about other
// users may arrive with NotifyProps sanitized to an empty map.
type UserProfile struct {
	ID                string            `json:"id"`
	CreateAt          int64             `json:"create_at"`
	UpdateAt          int64             `json:"update_at"`
	DeleteAt          int64             `json:"delete_at"`
	Username          string            `json:"username"`
	AuthService       string            `json:"auth_service"`
	Email             string            `json:"email"`
	Nickname          string            `json:"nickname"`
	FirstName         string            `json:"first_name"`
	LastName          string            `json:"last_name"`
	Position          string            `json:"position"`
	Roles             string            `json:"roles"`
	Locale            string            `json:"locale"`
	IsBot             bool              `json:"is_bot"`
	LastPictureUpdate int64             `json:"last_picture_update"`
	NotifyProps       map[string]string `json:"notify_props"`
	Props             map[string]string `json:"props"`
	Timezone          map[string]string `json:"timezone"`
}

// String returns the user's ID and username.
func (u UserProfile) String() string {
	return fmt.Sprintf("User{%s, %s}", u.ID, u.Username)
}

// Channel is the locally stored view of a channel.
type Channel struct {
	ID          string
	TeamID      string
	Type        ChannelType
	Name        string
	DisplayName string
	DeleteAt    int64
	UpdateAt    int64
}

// Preference is a single stored user preference.
type Preference struct {
	UserID   string
	Category string
	Name     string
	Value    string
}

// ClientConfig is the server's client configuration in the "old" string map
// format.
type ClientConfig map[string]string

// ClientLicense is the server's client license in the "old" string map format.
type ClientLicense map[string]string

// Batch is a set of records written in one atomic operation.
type Batch struct {
	Users    []UserProfile
	Channels []Channel
}

// TypingMessage is the decoded payload of a "typing" websocket event.
type TypingMessage struct {
	ChannelID string
	ParentID  string
	UserID    string
}

// TypingData is broadcast with the USER_TYPING and USER_STOP_TYPING events.
type TypingData struct {
	ChannelID string `json:"channelId"`
	RootID    string `json:"rootId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Now       int64  `json:"now"`
}
