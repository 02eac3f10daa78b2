////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package servers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/stretchr/testify/require"
	"gitlab.com/elixxir/ekv"
	"gitlab.com/elixxir/teamsync/event"
	"gitlab.com/elixxir/teamsync/remote"
	"gitlab.com/elixxir/teamsync/storage/versioned"
	"gitlab.com/elixxir/teamsync/users"
)

func TestMain(m *testing.M) {
	jww.SetStdoutThreshold(jww.LevelDebug)
	os.Exit(m.Run())
}

// fakeServer serves the REST routes used by the manager and one websocket.
type fakeServer struct {
	*httptest.Server
	actions chan map[string]interface{}
	send    chan string
}

func newFakeServer(t *testing.T) *fakeServer {
	fs := &fakeServer{
		actions: make(chan map[string]interface{}, 10),
		send:    make(chan string, 10),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/users/me", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(users.UserProfile{ID: "me",
			Username: "me.user", Locale: "en", UpdateAt: 1,
			NotifyProps: map[string]string{"push": "all"}})
	})
	mux.HandleFunc("/api/v4/users/ids", func(w http.ResponseWriter, r *http.Request) {
		var ids []string
		_ = json.NewDecoder(r.Body).Decode(&ids)
		profiles := make([]users.UserProfile, len(ids))
		for i, id := range ids {
			profiles[i] = users.UserProfile{ID: id, Username: id + ".user",
				FirstName: "First", LastName: id}
		}
		_ = json.NewEncoder(w).Encode(profiles)
	})
	mux.HandleFunc("/api/v4/users/me/preferences", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"user_id":"me","category":"display_settings",` +
			`"name":"name_format","value":"full_name"}]`))
	})
	mux.HandleFunc("/api/v4/config/client", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"TimeBetweenUserTypingUpdatesMilliseconds":"50",` +
			`"TeammateNameDisplay":"username"}`))
	})
	mux.HandleFunc("/api/v4/license/client", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"id":"api.context.permissions","message":"denied"}`))
	})

	upgrader := gorilla.Upgrader{}
	mux.HandleFunc("/api/v4/websocket", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		go func() {
			for frame := range fs.send {
				if conn.WriteMessage(gorilla.TextMessage, []byte(frame)) != nil {
					return
				}
			}
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			a := make(map[string]interface{})
			if json.Unmarshal(data, &a) == nil {
				fs.actions <- a
			}
		}
	})

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Server.Close)
	return fs
}

func newTestManager(t *testing.T, kv *versioned.KV) *Manager {
	m, err := NewManager(kv, "", remote.GetDefaultParams())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// Tests that servers and the active server survive a reload.
func TestManager_ActiveServer(t *testing.T) {
	kv := versioned.NewKV(ekv.MakeMemstore())
	m := newTestManager(t, kv)

	const serverURL = "https://chat.example.com"
	require.NoError(t, m.AddServer(serverURL+"/", "token"))
	err := m.AddServer(serverURL, "token")
	require.True(t, errors.Is(err, ServerAlreadyExistsErr))

	_, err = m.GetActiveServerURL()
	require.True(t, errors.Is(err, NoActiveServerErr))

	err = m.SetActiveServer("https://unknown.example.com")
	require.True(t, errors.Is(err, ServerDoesNotExistErr))

	require.NoError(t, m.SetActiveServer(serverURL))
	active, err := m.GetActiveServerURL()
	require.NoError(t, err)
	require.Equal(t, serverURL, active)

	reloaded := newTestManager(t, kv)
	require.Equal(t, []string{serverURL}, reloaded.ServerURLs())
	active, err = reloaded.GetActiveServerURL()
	require.NoError(t, err)
	require.Equal(t, serverURL, active)

	_, exists := reloaded.Database(serverURL)
	require.True(t, exists)
}

// Tests that removing the active server forgets it and clears the selection.
func TestManager_RemoveServer(t *testing.T) {
	kv := versioned.NewKV(ekv.MakeMemstore())
	m := newTestManager(t, kv)

	const serverURL = "https://chat.example.com"
	require.NoError(t, m.AddServer(serverURL, "token"))
	require.NoError(t, m.SetActiveServer(serverURL))
	require.NoError(t, m.RemoveServer(serverURL))

	require.Empty(t, m.ServerURLs())
	_, err := m.GetActiveServerURL()
	require.True(t, errors.Is(err, NoActiveServerErr))

	err = m.RemoveServer(serverURL)
	require.True(t, errors.Is(err, ServerDoesNotExistErr))

	require.Empty(t, newTestManager(t, kv).ServerURLs())
}

// Error path: operations on unknown servers.
func TestManager_UnknownServer(t *testing.T) {
	m := newTestManager(t, versioned.NewKV(ekv.MakeMemstore()))
	const serverURL = "https://nowhere.example.com"

	_, exists := m.Database(serverURL)
	require.False(t, exists)
	_, exists = m.Client(serverURL)
	require.False(t, exists)

	_, err := m.FetchMe(serverURL)
	require.True(t, errors.Is(err, ServerDoesNotExistErr))
	_, err = m.FetchUsersByIDs(serverURL, []string{"a"})
	require.True(t, errors.Is(err, ServerDoesNotExistErr))
	require.True(t, errors.Is(m.Bootstrap(serverURL), ServerDoesNotExistErr))
	require.True(t, errors.Is(
		m.Connect(serverURL, nil), ServerDoesNotExistErr))
}

// Tests that Bootstrap seeds the database with the current user, config,
// preferences and an empty license when it is refused.
func TestManager_Bootstrap(t *testing.T) {
	fs := newFakeServer(t)
	m := newTestManager(t, versioned.NewKV(ekv.MakeMemstore()))
	require.NoError(t, m.AddServer(fs.URL, "token"))
	require.NoError(t, m.Bootstrap(fs.URL))

	db, exists := m.Database(fs.URL)
	require.True(t, exists)

	me, err := db.GetCurrentUser()
	require.NoError(t, err)
	require.Equal(t, "me.user", me.Username)
	require.Equal(t, "all", me.NotifyProps["push"])

	config, err := db.GetConfig()
	require.NoError(t, err)
	require.Equal(t, "50", config[users.ConfigTimeBetweenTyping])

	license, err := db.GetLicense()
	require.NoError(t, err)
	require.Empty(t, license)

	pref, err := db.GetPreference(users.PreferenceCategoryDisplaySettings,
		users.PreferenceNameNameFormat)
	require.NoError(t, err)
	require.Equal(t, users.ShowFullName, pref.Value)
}

// Tests events flowing from the websocket through the reconciler to the
// database and the event bus, and typing flowing back out.
func TestManager_Connect(t *testing.T) {
	fs := newFakeServer(t)
	m := newTestManager(t, versioned.NewKV(ekv.MakeMemstore()))
	require.NoError(t, m.AddServer(fs.URL, "token"))
	require.NoError(t, m.Bootstrap(fs.URL))
	require.NoError(t, m.SetActiveServer(fs.URL))

	events := event.NewManager()
	received := make(chan event.Event, 10)
	require.NoError(t, events.RegisterCallback("test",
		func(evt event.Event) { received <- evt }))
	service, err := events.EventService()
	require.NoError(t, err)
	defer service.Close()

	r := users.NewReconciler(m, m, m, m, events)
	defer r.Stop()

	_, exists := m.Client(fs.URL)
	require.False(t, exists)
	require.NoError(t, m.Connect(fs.URL, r))
	_, exists = m.Client(fs.URL)
	require.True(t, exists)

	auth := <-fs.actions
	require.Equal(t, "authentication_challenge", auth["action"])

	fs.send <- `{"event":"typing","data":{"parent_id":"","user_id":"u1"},` +
		`"broadcast":{"channel_id":"ch1"},"seq":1}`

	for _, expected := range []string{event.UserTyping, event.UserStopTyping} {
		select {
		case evt := <-received:
			require.Equal(t, expected, evt.Type)
			data := evt.Data.(users.TypingData)
			require.Equal(t, "ch1", data.ChannelID)
			require.Equal(t, "u1", data.UserID)
			require.Equal(t, "First u1", data.Username)
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for %s", expected)
		}
	}

	fs.send <- `{"event":"user_updated","data":{"user":{"id":"u2",` +
		`"username":"bob","update_at":5}},"broadcast":{},"seq":2}`

	db, _ := m.Database(fs.URL)
	require.Eventually(t, func() bool {
		u, err := db.GetUser("u2")
		return err == nil && u.Username == "bob"
	}, 2*time.Second, 10*time.Millisecond)

	r.UserTyping(fs.URL, "ch1", "root1")
	select {
	case a := <-fs.actions:
		require.Equal(t, "user_typing", a["action"])
		require.Equal(t, map[string]interface{}{
			"channel_id": "ch1", "parent_id": "root1"}, a["data"])
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for user_typing")
	}
}
