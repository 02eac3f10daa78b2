////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package users applies real-time user events from a server to the local
// record store and the event bus.
//
// Both handlers are best effort. Missing prerequisites (no database, no
// logged in user, inactive server) skip the event and write or fetch failures
// are logged. Neither is returned as an error; the Result of each call says
// which branch was taken.
package users

import (
	"fmt"

	"github.com/golang-collections/collections/set"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/teamsync/event"
	"gitlab.com/xx_network/primitives/netTime"
)

// Outcome is the branch a handler took.
type Outcome uint8

const (
	// Applied means the staged records were written or the typing event was
	// broadcast.
	Applied Outcome = iota

	// Skipped means a prerequisite was missing and nothing happened.
	Skipped

	// Stale means the event was older than the stored record.
	Stale

	// Failed means the batch write was attempted and failed.
	Failed
)

// String prints a human-readable form of the Outcome.
func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	case Stale:
		return "stale"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("INVALID OUTCOME %d", o)
	}
}

// Result describes what a handler did.
type Result struct {
	Outcome Outcome

	// Reason explains a Skipped outcome.
	Reason string

	// Err is the swallowed batch write error of a Failed outcome.
	Err error

	// Number of user and channel records in the written batch.
	Users    int
	Channels int
}

func skipped(reason string) Result {
	return Result{Outcome: Skipped, Reason: reason}
}

// Reconciler handles the user_updated and typing events of every server.
type Reconciler struct {
	dbs     Databases
	active  ActiveServer
	remote  Remote
	sockets Sockets
	events  event.Emitter
	typing  *typingTracker
}

// NewReconciler builds a Reconciler around its collaborators.
func NewReconciler(dbs Databases, active ActiveServer, remote Remote,
	sockets Sockets, events event.Emitter) *Reconciler {
	r := &Reconciler{
		dbs:     dbs,
		active:  active,
		remote:  remote,
		sockets: sockets,
		events:  events,
	}
	r.typing = newTypingTracker(func(data TypingData) {
		r.events.Emit(event.UserStopTyping, data)
	})
	return r
}

// Stop cancels every pending stop-typing broadcast.
func (r *Reconciler) Stop() {
	r.typing.stopAll()
}

// HandleUserUpdatedEvent applies a user_updated event to the local store of
// the server.
//
// For the logged in user the update only applies if it is newer than the
// stored one. A sanitized profile (empty notify props) is replaced by a fresh
// copy from the server, and a locale change renames every group message
// channel. For anybody else, every direct and group message channel they are a
// member of is renamed. The user and any renamed channels are written in one
// batch.
func (r *Reconciler) HandleUserUpdatedEvent(serverURL string,
	user UserProfile) Result {
	db, exists := r.dbs.Database(serverURL)
	if !exists {
		return skipped("no database for " + serverURL)
	}

	currentUser, err := db.GetCurrentUser()
	if err != nil {
		jww.DEBUG.Printf("[USERS] Skipping user_updated on %s: %+v",
			serverURL, err)
		return skipped("no current user on " + serverURL)
	}

	userToSave := user
	var channels []Channel

	if user.ID == currentUser.ID {
		if user.UpdateAt <= currentUser.UpdateAt {
			jww.DEBUG.Printf("[USERS] Dropping stale update of %s: %d <= %d",
				user, user.UpdateAt, currentUser.UpdateAt)
			return Result{Outcome: Stale}
		}

		if len(user.NotifyProps) == 0 {
			// The event carries a sanitized copy of ourselves; do not let
			// it blank out the stored notification settings
			me, err := r.remote.FetchMe(serverURL)
			if err != nil {
				jww.WARN.Printf("[USERS] Failed to fetch full profile of %s "+
					"on %s: %+v", user, serverURL, err)
			} else if me != nil {
				userToSave = *me
			}
		}

		if user.Locale != currentUser.Locale {
			gms, err := db.GetChannelsByType(GroupChannel)
			if err != nil {
				jww.ERROR.Printf("[USERS] Failed to load group messages on "+
					"%s: %+v", serverURL, err)
			} else {
				channels = r.renameChannels(
					db, currentUser, gms, []UserProfile{user})
			}
		}
	} else {
		dms, err := db.GetChannelsByMember(
			user.ID, DirectChannel, GroupChannel)
		if err != nil {
			jww.ERROR.Printf("[USERS] Failed to load channels of %s on "+
				"%s: %+v", user, serverURL, err)
		} else {
			channels = r.renameChannels(
				db, currentUser, dms, []UserProfile{user})
		}
	}

	batch := Batch{
		Users:    []UserProfile{userToSave},
		Channels: channels,
	}
	if err = db.BatchRecords(batch); err != nil {
		jww.ERROR.Printf("[USERS] Failed to write user_updated of %s on "+
			"%s: %+v", user, serverURL, err)
		return Result{Outcome: Failed, Err: err,
			Users: len(batch.Users), Channels: len(batch.Channels)}
	}

	jww.DEBUG.Printf("[USERS] Applied user_updated of %s on %s "+
		"(%d channels renamed)", user, serverURL, len(channels))
	return Result{Outcome: Applied,
		Users: len(batch.Users), Channels: len(batch.Channels)}
}

// renameChannels recomputes the display name of each channel and returns
// copies of the ones that changed. Profiles in overrides take precedence over
// stored ones.
func (r *Reconciler) renameChannels(db Database, currentUser *UserProfile,
	channels []Channel, overrides []UserProfile) []Channel {
	byID := make(map[string]*UserProfile, len(overrides))
	locale := currentUser.Locale
	for i := range overrides {
		byID[overrides[i].ID] = &overrides[i]
		if overrides[i].ID == currentUser.ID {
			locale = overrides[i].Locale
		}
	}

	pref, err := db.GetPreference(
		PreferenceCategoryDisplaySettings, PreferenceNameNameFormat)
	if err != nil && !errors.Is(err, ErrNotFound) {
		jww.WARN.Printf("[USERS] Failed to load name format: %+v", err)
	}
	config, err := db.GetConfig()
	if err != nil {
		jww.WARN.Printf("[USERS] Failed to load config: %+v", err)
	}
	license, err := db.GetLicense()
	if err != nil {
		jww.WARN.Printf("[USERS] Failed to load license: %+v", err)
	}
	setting := TeammateNameDisplay(pref, config, license)

	seen := set.New()
	renamed := make([]Channel, 0, len(channels))
	for _, channel := range channels {
		if seen.Has(channel.ID) {
			continue
		}
		seen.Insert(channel.ID)

		var name string
		switch channel.Type {
		case DirectChannel:
			name, err = directMessageName(
				db, currentUser.ID, channel, byID, locale, setting)
		case GroupChannel:
			name, err = groupMessageName(
				db, currentUser.ID, channel, byID, locale, setting)
		default:
			continue
		}

		if err != nil {
			jww.WARN.Printf("[USERS] Failed to rename channel %s: %+v",
				channel.ID, err)
			continue
		}

		if name == "" || name == channel.DisplayName {
			continue
		}

		jww.TRACE.Printf("[USERS] Renaming channel %s from %q to %q",
			channel.ID, channel.DisplayName, name)
		channel.DisplayName = name
		renamed = append(renamed, channel)
	}

	return renamed
}

func directMessageName(db Database, currentUserID string, channel Channel,
	overrides map[string]*UserProfile, locale, setting string) (string, error) {
	teammateID := TeammateIDFromChannelName(currentUserID, channel.Name)
	if teammateID == "" {
		return "", errors.Errorf(
			"malformed direct channel name %q", channel.Name)
	}

	teammate, exists := overrides[teammateID]
	if !exists {
		var err error
		teammate, err = db.GetUser(teammateID)
		if err != nil {
			return "", errors.WithMessagef(err,
				"failed to load teammate %s", teammateID)
		}
	}

	return DisplayUsername(teammate, locale, setting, false), nil
}

func groupMessageName(db Database, currentUserID string, channel Channel,
	overrides map[string]*UserProfile, locale, setting string) (string, error) {
	memberIDs, err := db.GetChannelMemberIDs(channel.ID)
	if err != nil {
		return "", errors.WithMessage(err, "failed to load members")
	}

	stored, err := db.GetUsers(memberIDs)
	if err != nil {
		return "", errors.WithMessage(err, "failed to load member profiles")
	}

	byID := make(map[string]UserProfile, len(stored))
	for _, u := range stored {
		byID[u.ID] = u
	}

	members := make([]UserProfile, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		if override, exists := overrides[memberID]; exists {
			members = append(members, *override)
		} else if u, exists := byID[memberID]; exists {
			members = append(members, u)
		}
	}

	return GroupMessageName(members, locale, setting, currentUserID), nil
}

// HandleUserTypingEvent broadcasts USER_TYPING for a typing event on the
// active server and USER_STOP_TYPING once the server's typing interval has
// passed without a newer event from the same user in the same thread.
func (r *Reconciler) HandleUserTypingEvent(serverURL string,
	msg TypingMessage) Result {
	activeURL, err := r.active.GetActiveServerURL()
	if err != nil || activeURL != serverURL {
		return skipped(serverURL + " is not the active server")
	}

	db, exists := r.dbs.Database(serverURL)
	if !exists {
		return skipped("no database for " + serverURL)
	}

	config, err := db.GetConfig()
	if err != nil {
		jww.WARN.Printf("[USERS] Failed to load config of %s: %+v",
			serverURL, err)
	}
	license, err := db.GetLicense()
	if err != nil {
		jww.WARN.Printf("[USERS] Failed to load license of %s: %+v",
			serverURL, err)
	}

	user, err := db.GetUser(msg.UserID)
	if err != nil {
		user = nil
		fetched, err := r.remote.FetchUsersByIDs(
			serverURL, []string{msg.UserID})
		if err != nil {
			jww.WARN.Printf("[USERS] Failed to fetch typing user %s on "+
				"%s: %+v", msg.UserID, serverURL, err)
		} else if len(fetched) > 0 {
			user = &fetched[0]
		}
	}

	pref, err := db.GetPreference(
		PreferenceCategoryDisplaySettings, PreferenceNameNameFormat)
	if err != nil {
		pref = nil
	}
	setting := TeammateNameDisplay(pref, config, license)

	var locale string
	if currentUser, err := db.GetCurrentUser(); err == nil {
		locale = currentUser.Locale
	}

	data := TypingData{
		ChannelID: msg.ChannelID,
		RootID:    msg.ParentID,
		UserID:    msg.UserID,
		Username:  DisplayUsername(user, locale, setting, true),
		Now:       netTime.Now().UnixMilli(),
	}

	r.events.Emit(event.UserTyping, data)
	r.typing.schedule(data, typingDelay(config))

	return Result{Outcome: Applied}
}

// UserTyping tells the server that the local user is typing in the channel
// or thread. Nothing happens if the server has no open connection.
func (r *Reconciler) UserTyping(serverURL, channelID, rootID string) {
	client, exists := r.sockets.Client(serverURL)
	if !exists {
		jww.DEBUG.Printf("[USERS] No connection to %s for typing", serverURL)
		return
	}

	if err := client.SendUserTypingEvent(channelID, rootID); err != nil {
		jww.WARN.Printf("[USERS] Failed to send typing to %s: %+v",
			serverURL, err)
	}
}
