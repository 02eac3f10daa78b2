////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package users

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisplayUsername(t *testing.T) {
	full := &UserProfile{Username: "jdoe", Nickname: "JD",
		FirstName: "John", LastName: "Doe"}
	first := &UserProfile{Username: "jdoe", FirstName: "John"}
	bare := &UserProfile{Username: "jdoe"}

	tests := []struct {
		user     *UserProfile
		setting  string
		expected string
	}{
		{full, ShowUsername, "jdoe"},
		{full, ShowNicknameFullName, "JD"},
		{full, ShowFullName, "John Doe"},
		{first, ShowNicknameFullName, "John"},
		{first, ShowFullName, "John"},
		{bare, ShowFullName, "jdoe"},
		{bare, ShowNicknameFullName, "jdoe"},
		{full, "", "jdoe"},
		{&UserProfile{Username: "jdoe", Nickname: "  "}, ShowNicknameFullName, "jdoe"},
	}

	for i, tt := range tests {
		require.Equal(t, tt.expected,
			DisplayUsername(tt.user, "en", tt.setting, true), "test %d", i)
	}
}

// Tests the fallback for users that could not be resolved.
func TestDisplayUsername_Nil(t *testing.T) {
	require.Equal(t, "", DisplayUsername(nil, "en", ShowUsername, false))
	require.Equal(t, "Someone", DisplayUsername(nil, "en", ShowUsername, true))
	require.Equal(t, "Someone", DisplayUsername(nil, "", ShowUsername, true))
	require.Equal(t, "Jemand", DisplayUsername(nil, "de", ShowUsername, true))
	require.Equal(t, "Alguém", DisplayUsername(nil, "pt-br", ShowUsername, true))
	require.Equal(t, "Someone", DisplayUsername(nil, "not a locale!", ShowUsername, true))
}

func TestTeammateNameDisplay(t *testing.T) {
	pref := &Preference{Value: ShowNicknameFullName}
	config := ClientConfig{ConfigTeammateNameDisplay: ShowFullName}
	locked := ClientConfig{ConfigTeammateNameDisplay: ShowFullName,
		ConfigLockTeammateNameDisplay: "true"}
	license := ClientLicense{LicenseLockTeammateNameDisplay: "true"}

	require.Equal(t, ShowFullName, TeammateNameDisplay(pref, locked, license))
	require.Equal(t, ShowNicknameFullName, TeammateNameDisplay(pref, locked, nil))
	require.Equal(t, ShowNicknameFullName, TeammateNameDisplay(pref, config, license))
	require.Equal(t, ShowFullName, TeammateNameDisplay(nil, config, nil))
	require.Equal(t, ShowUsername, TeammateNameDisplay(nil, nil, nil))
}

func TestGroupMessageName(t *testing.T) {
	members := []UserProfile{
		{ID: "me", Username: "me"},
		{ID: "a", Username: "user10"},
		{ID: "b", Username: "user2"},
		{ID: "c", Username: "Bob"},
	}
	require.Equal(t, "Bob, user2, user10",
		GroupMessageName(members, "en", ShowUsername, "me"))
	require.Equal(t, "", GroupMessageName(members[:1], "en", ShowUsername, "me"))
}

func TestTeammateIDFromChannelName(t *testing.T) {
	require.Equal(t, "other", TeammateIDFromChannelName("me", "me__other"))
	require.Equal(t, "other", TeammateIDFromChannelName("me", "other__me"))
	require.Equal(t, "me", TeammateIDFromChannelName("me", "me__me"))
	require.Equal(t, "", TeammateIDFromChannelName("me", "town-square"))
}
