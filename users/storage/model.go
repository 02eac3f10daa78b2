////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 Privategrity Corporation                                   /
//                                                                             /
// All rights reserved.                                                        /
////////////////////////////////////////////////////////////////////////////////

package storage

// User defines the SQL representation of a single user profile.
//
// UpdateAt is the server timestamp of the last applied update.
type User struct {
	Id                string `gorm:"primaryKey;not null;autoIncrement:false"`
	CreateAt          int64  `gorm:"not null"`
	UpdateAt          int64  `gorm:"not null"`
	DeleteAt          int64  `gorm:"not null"`
	Username          string `gorm:"index;not null"`
	AuthService       string
	Email             string
	Nickname          string
	FirstName         string
	LastName          string
	Position          string
	Roles             string
	Locale            string
	IsBot             bool
	LastPictureUpdate int64

	NotifyProps map[string]string `gorm:"serializer:json"`
	Props       map[string]string `gorm:"serializer:json"`
	Timezone    map[string]string `gorm:"serializer:json"`
}

// TableName overrides the table name used by User.
func (User) TableName() string {
	return "users"
}

// Channel defines the SQL representation of a single channel.
//
// A Channel has many ChannelMembership.
type Channel struct {
	Id          string `gorm:"primaryKey;not null;autoIncrement:false"`
	TeamId      string `gorm:"index"`
	Type        string `gorm:"index;not null"`
	Name        string `gorm:"not null"`
	DisplayName string `gorm:"not null"`
	DeleteAt    int64  `gorm:"not null"`
	UpdateAt    int64  `gorm:"not null"`

	Members []ChannelMembership `gorm:"foreignKey:ChannelId;references:Id;constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name used by Channel.
func (Channel) TableName() string {
	return "channels"
}

// ChannelMembership links a user to a channel. Users do not need to be stored
// locally for their membership to be known.
type ChannelMembership struct {
	ChannelId string `gorm:"primaryKey;not null;autoIncrement:false"`
	UserId    string `gorm:"primaryKey;index;not null;autoIncrement:false"`
}

// TableName overrides the table name used by ChannelMembership.
func (ChannelMembership) TableName() string {
	return "channel_memberships"
}

// Preference defines the SQL representation of a single user preference.
type Preference struct {
	UserId   string `gorm:"primaryKey;not null;autoIncrement:false"`
	Category string `gorm:"primaryKey;not null;autoIncrement:false"`
	Name     string `gorm:"primaryKey;not null;autoIncrement:false"`
	Value    string `gorm:"not null"`
}

// TableName overrides the table name used by Preference.
func (Preference) TableName() string {
	return "preferences"
}

// System holds a single JSON encoded server value, such as the client config
// or the ID of the logged in user.
type System struct {
	Id    string `gorm:"primaryKey;not null;autoIncrement:false"`
	Value []byte `gorm:"not null"`
}

// TableName overrides the table name used by System.
func (System) TableName() string {
	return "system"
}
