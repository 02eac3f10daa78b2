////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package users

import (
	"strings"

	jww "github.com/spf13/jwalterweatherman"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	defaultLocale = "en"

	// someoneKey is shown in place of a user that could not be resolved.
	someoneKey = "Someone"

	// dmNameSeparator joins the two user IDs of a direct message channel name.
	dmNameSeparator = "__"

	groupNameSeparator = ", "
)

var someoneTranslations = map[string]string{
	"de":    "Jemand",
	"es":    "Alguien",
	"fr":    "Quelqu'un",
	"it":    "Qualcuno",
	"ja":    "誰か",
	"ko":    "누군가",
	"nl":    "Iemand",
	"pl":    "Ktoś",
	"pt-BR": "Alguém",
	"ru":    "Кто-то",
	"tr":    "Birisi",
	"uk":    "Хтось",
	"zh-CN": "某人",
	"zh-TW": "某人",
}

func init() {
	for locale, translation := range someoneTranslations {
		err := message.SetString(language.MustParse(locale), someoneKey,
			translation)
		if err != nil {
			jww.FATAL.Panicf("Failed to register %q translation: %+v",
				locale, err)
		}
	}
}

// localeTag parses a server locale (e.g. "pt-br") falling back to English.
func localeTag(locale string) language.Tag {
	if locale == "" {
		locale = defaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		jww.DEBUG.Printf("Unknown locale %q, using %s: %+v",
			locale, defaultLocale, err)
		return language.English
	}
	return tag
}

// TeammateNameDisplay resolves how other users' names are shown. A setting
// locked by both config and license wins over the viewer's preference.
func TeammateNameDisplay(pref *Preference, config ClientConfig,
	license ClientLicense) string {
	configSetting := config[ConfigTeammateNameDisplay]

	if config[ConfigLockTeammateNameDisplay] == "true" &&
		license[LicenseLockTeammateNameDisplay] == "true" &&
		configSetting != "" {
		return configSetting
	}

	if pref != nil && pref.Value != "" {
		return pref.Value
	}

	if configSetting != "" {
		return configSetting
	}

	return ShowUsername
}

// FullName joins first and last name, or returns whichever is set.
func FullName(user *UserProfile) string {
	switch {
	case user.FirstName != "" && user.LastName != "":
		return user.FirstName + " " + user.LastName
	case user.FirstName != "":
		return user.FirstName
	default:
		return user.LastName
	}
}

// DisplayUsername formats a user's name according to the teammate name
// display setting. Blank results fall back to the username. A nil user yields
// a localized "Someone" if useFallback is set and an empty string otherwise.
func DisplayUsername(user *UserProfile, locale, setting string,
	useFallback bool) string {
	if user == nil {
		if !useFallback {
			return ""
		}
		return message.NewPrinter(localeTag(locale)).Sprintf(someoneKey)
	}

	var name string
	switch setting {
	case ShowNicknameFullName:
		name = user.Nickname
		if name == "" {
			name = FullName(user)
		}
	case ShowFullName:
		name = FullName(user)
	default:
		name = user.Username
	}

	if strings.TrimSpace(name) == "" {
		name = user.Username
	}
	return name
}

// GroupMessageName is the display name of a group message channel: the names
// of every member except excludeUserID in locale order.
func GroupMessageName(members []UserProfile, locale, setting,
	excludeUserID string) string {
	names := make([]string, 0, len(members))
	for i := range members {
		if members[i].ID == excludeUserID {
			continue
		}
		names = append(names, DisplayUsername(&members[i], locale, setting, false))
	}

	collate.New(localeTag(locale), collate.Numeric).SortStrings(names)
	return strings.Join(names, groupNameSeparator)
}

// TeammateIDFromChannelName returns the other user of a direct message
// channel. A channel with oneself returns currentUserID.
func TeammateIDFromChannelName(currentUserID, channelName string) string {
	ids := strings.Split(channelName, dmNameSeparator)
	if len(ids) != 2 {
		return ""
	}
	if ids[0] == currentUserID {
		return ids[1]
	}
	return ids[0]
}
