////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package servers

import (
	"net/http"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/teamsync/remote"
	"gitlab.com/elixxir/teamsync/users"
)

// Bootstrap seeds the database of the server with the logged in user, their
// preferences, and the client config and license. This is the minimum the
// event handlers need; channels are not synced.
func (m *Manager) Bootstrap(serverURL string) error {
	s, exists := m.getServer(serverURL)
	if !exists {
		return errors.WithMessage(ServerDoesNotExistErr, serverURL)
	}

	me, err := s.rest.GetMe()
	if err != nil {
		return errors.WithMessagef(err, "failed to fetch profile on %s",
			serverURL)
	}

	config, err := s.rest.GetClientConfig()
	if err != nil {
		return errors.WithMessagef(err, "failed to fetch config of %s",
			serverURL)
	}

	license, err := s.rest.GetClientLicense()
	if err != nil {
		// Servers without a license, or that refuse it to regular users,
		// are treated as unlicensed
		var se *remote.StatusError
		if !errors.As(err, &se) || (se.StatusCode != http.StatusForbidden &&
			se.StatusCode != http.StatusNotFound) {
			return errors.WithMessagef(err, "failed to fetch license of %s",
				serverURL)
		}
		jww.WARN.Printf("[SERVERS] No license for %s: %+v", serverURL, err)
		license = users.ClientLicense{}
	}

	prefs, err := s.rest.GetMyPreferences()
	if err != nil {
		jww.WARN.Printf("[SERVERS] Failed to fetch preferences on %s: %+v",
			serverURL, err)
	}

	if err = s.db.BatchRecords(
		users.Batch{Users: []users.UserProfile{*me}}); err != nil {
		return err
	}
	if err = s.db.SetCurrentUserID(me.ID); err != nil {
		return err
	}
	if err = s.db.SetConfig(config); err != nil {
		return err
	}
	if err = s.db.SetLicense(license); err != nil {
		return err
	}
	for _, pref := range prefs {
		if err = s.db.UpsertPreference(pref); err != nil {
			return err
		}
	}

	jww.INFO.Printf("[SERVERS] Bootstrapped %s as %s with %d preferences",
		serverURL, me, len(prefs))
	return nil
}
