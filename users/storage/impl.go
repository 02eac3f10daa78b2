////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 Privategrity Corporation                                   /
//                                                                             /
// All rights reserved.                                                        /
////////////////////////////////////////////////////////////////////////////////

package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/teamsync/users"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// Can be provided to SqlLite to create a temporary, in-memory DB.
	temporaryDbPath = "file:%s?mode=memory&cache=shared"

	// Determines maximum runtime (in seconds) of DB queries.
	dbTimeout = 3 * time.Second
)

// System record IDs.
const (
	currentUserIdKey = "currentUserId"
	configKey        = "config"
	licenseKey       = "license"
)

// newContext builds a context for database operations.
func newContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

// notFound converts gorm's missing record error into users.ErrNotFound.
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.WithMessagef(users.ErrNotFound, format, args...)
	}
	return errors.WithMessagef(err, format, args...)
}

func (d *Database) GetCurrentUser() (*users.UserProfile, error) {
	var userID string
	if err := d.getSystem(currentUserIdKey, &userID); err != nil {
		return nil, err
	}
	return d.GetUser(userID)
}

func (d *Database) GetUser(userID string) (*users.UserProfile, error) {
	result := &User{}
	ctx, cancel := newContext()
	err := d.db.WithContext(ctx).Where("id = ?", userID).Take(result).Error
	cancel()
	if err != nil {
		return nil, notFound(err, "failed to get user %s", userID)
	}

	u := result.profile()
	return &u, nil
}

func (d *Database) GetUsers(userIDs []string) ([]users.UserProfile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var results []User
	ctx, cancel := newContext()
	err := d.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&results).Error
	cancel()
	if err != nil {
		return nil, errors.Errorf("failed to get users: %+v", err)
	}

	profiles := make([]users.UserProfile, len(results))
	for i := range results {
		profiles[i] = results[i].profile()
	}
	return profiles, nil
}

func (d *Database) GetChannelsByType(
	types ...users.ChannelType) ([]users.Channel, error) {
	var results []Channel
	ctx, cancel := newContext()
	err := d.db.WithContext(ctx).Where("type IN ?", typeStrings(types)).
		Order("id").Find(&results).Error
	cancel()
	if err != nil {
		return nil, errors.Errorf("failed to get channels by type: %+v", err)
	}
	return toChannels(results), nil
}

func (d *Database) GetChannelsByMember(userID string,
	types ...users.ChannelType) ([]users.Channel, error) {
	var results []Channel
	ctx, cancel := newContext()
	err := d.db.WithContext(ctx).
		Joins("JOIN channel_memberships ON channel_memberships.channel_id = channels.id").
		Where("channel_memberships.user_id = ? AND channels.type IN ?",
			userID, typeStrings(types)).
		Order("channels.id").Find(&results).Error
	cancel()
	if err != nil {
		return nil, errors.Errorf(
			"failed to get channels of member %s: %+v", userID, err)
	}
	return toChannels(results), nil
}

func (d *Database) GetChannelMemberIDs(channelID string) ([]string, error) {
	var userIDs []string
	ctx, cancel := newContext()
	err := d.db.WithContext(ctx).Model(&ChannelMembership{}).
		Where("channel_id = ?", channelID).
		Order("user_id").Pluck("user_id", &userIDs).Error
	cancel()
	if err != nil {
		return nil, errors.Errorf(
			"failed to get members of %s: %+v", channelID, err)
	}
	return userIDs, nil
}

// GetConfig returns the stored client config, or an empty one if none has
// been stored yet.
func (d *Database) GetConfig() (users.ClientConfig, error) {
	config := users.ClientConfig{}
	err := d.getSystem(configKey, &config)
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		return nil, err
	}
	return config, nil
}

// GetLicense returns the stored client license, or an empty one if none has
// been stored yet.
func (d *Database) GetLicense() (users.ClientLicense, error) {
	license := users.ClientLicense{}
	err := d.getSystem(licenseKey, &license)
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		return nil, err
	}
	return license, nil
}

func (d *Database) GetPreference(
	category, name string) (*users.Preference, error) {
	result := &Preference{}
	ctx, cancel := newContext()
	err := d.db.WithContext(ctx).
		Where("category = ? AND name = ?", category, name).
		Take(result).Error
	cancel()
	if err != nil {
		return nil, notFound(err, "failed to get preference %s/%s",
			category, name)
	}

	return &users.Preference{
		UserID:   result.UserId,
		Category: result.Category,
		Name:     result.Name,
		Value:    result.Value,
	}, nil
}

// BatchRecords upserts every user and channel of the batch in a single
// transaction.
func (d *Database) BatchRecords(batch users.Batch) error {
	jww.DEBUG.Printf("[USERS SQL] Writing batch of %d users and %d channels",
		len(batch.Users), len(batch.Channels))

	ctx, cancel := newContext()
	defer cancel()
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range batch.Users {
			if err := tx.Save(newUser(u)).Error; err != nil {
				return errors.Errorf("failed to save user %s: %+v", u.ID, err)
			}
		}
		for _, c := range batch.Channels {
			if err := tx.Omit("Members").Save(newChannel(c)).Error; err != nil {
				return errors.Errorf(
					"failed to save channel %s: %+v", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return errors.WithMessage(err, "[USERS SQL] batch write failed")
	}
	return nil
}

// SetCurrentUserID records which user is logged in.
func (d *Database) SetCurrentUserID(userID string) error {
	return d.setSystem(currentUserIdKey, userID)
}

// SetConfig stores the server's client config.
func (d *Database) SetConfig(config users.ClientConfig) error {
	return d.setSystem(configKey, config)
}

// SetLicense stores the server's client license.
func (d *Database) SetLicense(license users.ClientLicense) error {
	return d.setSystem(licenseKey, license)
}

// UpsertChannel stores the channel and adds the given members to it.
func (d *Database) UpsertChannel(
	channel users.Channel, memberIDs ...string) error {
	ctx, cancel := newContext()
	defer cancel()
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Members").Save(newChannel(channel)).Error; err != nil {
			return errors.Errorf(
				"failed to upsert channel %s: %+v", channel.ID, err)
		}
		for _, memberID := range memberIDs {
			membership := &ChannelMembership{
				ChannelId: channel.ID,
				UserId:    memberID,
			}
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(membership).Error
			if err != nil {
				return errors.Errorf("failed to add %s to channel %s: %+v",
					memberID, channel.ID, err)
			}
		}
		return nil
	})
}

// UpsertPreference stores a single preference.
func (d *Database) UpsertPreference(pref users.Preference) error {
	ctx, cancel := newContext()
	err := d.db.WithContext(ctx).Save(&Preference{
		UserId:   pref.UserID,
		Category: pref.Category,
		Name:     pref.Name,
		Value:    pref.Value,
	}).Error
	cancel()
	if err != nil {
		return errors.Errorf("failed to upsert preference %s/%s: %+v",
			pref.Category, pref.Name, err)
	}
	return nil
}

// getSystem decodes the JSON system value with the given ID into v.
func (d *Database) getSystem(id string, v interface{}) error {
	result := &System{}
	ctx, cancel := newContext()
	err := d.db.WithContext(ctx).Where("id = ?", id).Take(result).Error
	cancel()
	if err != nil {
		return notFound(err, "failed to get system value %s", id)
	}

	if err = json.Unmarshal(result.Value, v); err != nil {
		return errors.Errorf("failed to decode system value %s: %+v", id, err)
	}
	return nil
}

// setSystem stores v JSON encoded under the given ID.
func (d *Database) setSystem(id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Errorf("failed to encode system value %s: %+v", id, err)
	}

	ctx, cancel := newContext()
	err = d.db.WithContext(ctx).Save(&System{Id: id, Value: data}).Error
	cancel()
	if err != nil {
		return errors.Errorf("failed to set system value %s: %+v", id, err)
	}
	return nil
}

func newUser(u users.UserProfile) *User {
	return &User{
		Id:                u.ID,
		CreateAt:          u.CreateAt,
		UpdateAt:          u.UpdateAt,
		DeleteAt:          u.DeleteAt,
		Username:          u.Username,
		AuthService:       u.AuthService,
		Email:             u.Email,
		Nickname:          u.Nickname,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Position:          u.Position,
		Roles:             u.Roles,
		Locale:            u.Locale,
		IsBot:             u.IsBot,
		LastPictureUpdate: u.LastPictureUpdate,
		NotifyProps:       u.NotifyProps,
		Props:             u.Props,
		Timezone:          u.Timezone,
	}
}

func (u *User) profile() users.UserProfile {
	return users.UserProfile{
		ID:                u.Id,
		CreateAt:          u.CreateAt,
		UpdateAt:          u.UpdateAt,
		DeleteAt:          u.DeleteAt,
		Username:          u.Username,
		AuthService:       u.AuthService,
		Email:             u.Email,
		Nickname:          u.Nickname,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Position:          u.Position,
		Roles:             u.Roles,
		Locale:            u.Locale,
		IsBot:             u.IsBot,
		LastPictureUpdate: u.LastPictureUpdate,
		NotifyProps:       u.NotifyProps,
		Props:             u.Props,
		Timezone:          u.Timezone,
	}
}

func newChannel(c users.Channel) *Channel {
	return &Channel{
		Id:          c.ID,
		TeamId:      c.TeamID,
		Type:        string(c.Type),
		Name:        c.Name,
		DisplayName: c.DisplayName,
		DeleteAt:    c.DeleteAt,
		UpdateAt:    c.UpdateAt,
	}
}

func toChannels(results []Channel) []users.Channel {
	channels := make([]users.Channel, len(results))
	for i, c := range results {
		channels[i] = users.Channel{
			ID:          c.Id,
			TeamID:      c.TeamId,
			Type:        users.ChannelType(c.Type),
			Name:        c.Name,
			DisplayName: c.DisplayName,
			DeleteAt:    c.DeleteAt,
			UpdateAt:    c.UpdateAt,
		}
	}
	return channels
}

func typeStrings(types []users.ChannelType) []string {
	list := make([]string, len(types))
	for i, t := range types {
		list[i] = string(t)
	}
	return list
}
