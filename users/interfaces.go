////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package users

// Database is the local record store of one server.
type Database interface {
	// GetCurrentUser returns the locally authenticated user. Returns
	// ErrNotFound if no one is logged in.
	GetCurrentUser() (*UserProfile, error)

	// GetUser returns the stored user or ErrNotFound.
	GetUser(userID string) (*UserProfile, error)

	// GetUsers returns the stored users among userIDs. Missing IDs are
	// skipped.
	GetUsers(userIDs []string) ([]UserProfile, error)

	// GetChannelsByType returns every channel of the given types.
	GetChannelsByType(types ...ChannelType) ([]Channel, error)

	// GetChannelsByMember returns every channel of the given types that
	// userID is a member of.
	GetChannelsByMember(userID string, types ...ChannelType) ([]Channel, error)

	// GetChannelMemberIDs returns the user IDs of all members of a channel.
	GetChannelMemberIDs(channelID string) ([]string, error)

	GetConfig() (ClientConfig, error)
	GetLicense() (ClientLicense, error)

	// GetPreference returns the viewer's preference or ErrNotFound.
	GetPreference(category, name string) (*Preference, error)

	// BatchRecords upserts every record in the batch atomically.
	BatchRecords(batch Batch) error
}

// Databases looks up the local database of a server.
type Databases interface {
	Database(serverURL string) (Database, bool)
}

// ActiveServer reports which server connection is in the foreground.
type ActiveServer interface {
	GetActiveServerURL() (string, error)
}

// Remote reaches the server's REST API.
type Remote interface {
	// FetchMe returns the full profile of the authenticated user.
	FetchMe(serverURL string) (*UserProfile, error)

	FetchUsersByIDs(serverURL string, userIDs []string) ([]UserProfile, error)
}

// TypingSender sends typing indicators upstream.
type TypingSender interface {
	SendUserTypingEvent(channelID, parentID string) error
}

// Sockets looks up the websocket connection of a server.
type Sockets interface {
	Client(serverURL string) (TypingSender, bool)
}
