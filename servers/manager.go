////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package servers owns the per-server database, REST and websocket clients of
// every configured server and remembers which one is in the foreground.
package servers

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/teamsync/remote"
	"gitlab.com/elixxir/teamsync/storage/versioned"
	"gitlab.com/elixxir/teamsync/users"
	"gitlab.com/elixxir/teamsync/users/storage"
	"gitlab.com/elixxir/teamsync/websocket"
)

const kvPrefix = "servers"

// Errors returned by Manager.
var (
	ServerAlreadyExistsErr = errors.New("server already added")
	ServerDoesNotExistErr  = errors.New("server not added")
	NoActiveServerErr      = errors.New("no active server")
)

// Manager implements users.Databases, users.ActiveServer, users.Remote and
// users.Sockets over a set of servers.
type Manager struct {
	kv *versioned.KV

	// Directory holding one database file per server. Empty for in-memory
	// databases.
	baseDir string
	params  remote.Params

	servers map[string]*server
	mux     sync.RWMutex
}

var (
	_ users.Databases    = (*Manager)(nil)
	_ users.ActiveServer = (*Manager)(nil)
	_ users.Remote       = (*Manager)(nil)
	_ users.Sockets      = (*Manager)(nil)
)

// server holds the connections to a single server.
type server struct {
	url   string
	token string
	db    *storage.Database
	rest  *remote.Client
	ws    *websocket.Client
}

// NewManager loads the servers stored in kv and opens their databases under
// baseDir, or in memory if baseDir is empty.
func NewManager(
	kv *versioned.KV, baseDir string, params remote.Params) (*Manager, error) {
	m := &Manager{
		kv:      kv.Prefix(kvPrefix),
		baseDir: baseDir,
		params:  params,
		servers: make(map[string]*server),
	}

	if err := m.loadServers(); err != nil {
		return nil, err
	}
	return m, nil
}

// AddServer opens the database and REST client of the server and remembers
// it across restarts.
func (m *Manager) AddServer(serverURL, token string) error {
	serverURL = normalizeURL(serverURL)

	m.mux.Lock()
	defer m.mux.Unlock()

	if _, exists := m.servers[serverURL]; exists {
		return errors.WithMessage(ServerAlreadyExistsErr, serverURL)
	}

	s, err := m.openServer(serverURL, token)
	if err != nil {
		return err
	}

	if err = s.store(m.kv); err != nil {
		_ = s.db.Close()
		return err
	}

	m.servers[serverURL] = s

	if err = m.storeUnsafe(); err != nil {
		delete(m.servers, serverURL)
		_ = s.db.Close()
		return err
	}

	jww.INFO.Printf("[SERVERS] Added server %s", serverURL)
	return nil
}

// RemoveServer disconnects from the server, closes its database and forgets
// it. The active server is cleared if it was this one.
func (m *Manager) RemoveServer(serverURL string) error {
	serverURL = normalizeURL(serverURL)

	m.mux.Lock()
	defer m.mux.Unlock()

	s, exists := m.servers[serverURL]
	if !exists {
		return errors.WithMessage(ServerDoesNotExistErr, serverURL)
	}

	if err := s.close(); err != nil {
		jww.WARN.Printf("[SERVERS] %+v", err)
	}
	delete(m.servers, serverURL)

	if err := m.storeUnsafe(); err != nil {
		return err
	}

	if active, err := m.loadActive(); err == nil && active == serverURL {
		if err = m.deleteActive(); err != nil {
			return err
		}
	}

	return s.delete(m.kv)
}

// ServerURLs returns the URLs of every added server.
func (m *Manager) ServerURLs() []string {
	m.mux.RLock()
	defer m.mux.RUnlock()
	return m.getServersUnsafe()
}

// SetActiveServer makes the added server the foreground server.
func (m *Manager) SetActiveServer(serverURL string) error {
	serverURL = normalizeURL(serverURL)

	m.mux.RLock()
	_, exists := m.servers[serverURL]
	m.mux.RUnlock()
	if !exists {
		return errors.WithMessage(ServerDoesNotExistErr, serverURL)
	}

	return m.storeActive(serverURL)
}

// GetActiveServerURL returns the URL of the foreground server.
func (m *Manager) GetActiveServerURL() (string, error) {
	return m.loadActive()
}

// Database returns the database of the server.
func (m *Manager) Database(serverURL string) (users.Database, bool) {
	s, exists := m.getServer(serverURL)
	if !exists {
		return nil, false
	}
	return s.db, true
}

// Client returns the websocket client of the server if it is connected.
func (m *Manager) Client(serverURL string) (users.TypingSender, bool) {
	s, exists := m.getServer(serverURL)
	if !exists {
		return nil, false
	}

	m.mux.RLock()
	ws := s.ws
	m.mux.RUnlock()
	if ws == nil {
		return nil, false
	}
	return ws, true
}

// FetchMe fetches the full profile of the logged in user from the server.
func (m *Manager) FetchMe(serverURL string) (*users.UserProfile, error) {
	s, exists := m.getServer(serverURL)
	if !exists {
		return nil, errors.WithMessage(ServerDoesNotExistErr, serverURL)
	}
	return s.rest.GetMe()
}

// FetchUsersByIDs fetches the profiles of the users from the server.
func (m *Manager) FetchUsersByIDs(
	serverURL string, userIDs []string) ([]users.UserProfile, error) {
	s, exists := m.getServer(serverURL)
	if !exists {
		return nil, errors.WithMessage(ServerDoesNotExistErr, serverURL)
	}
	return s.rest.GetProfilesByIDs(userIDs)
}

// Close disconnects from every server and closes their databases.
func (m *Manager) Close() error {
	m.mux.Lock()
	defer m.mux.Unlock()

	var failed []string
	for _, s := range m.servers {
		if err := s.close(); err != nil {
			failed = append(failed, err.Error())
		}
	}
	m.servers = make(map[string]*server)

	if len(failed) > 0 {
		return errors.Errorf("failed to close %d servers: %s",
			len(failed), strings.Join(failed, "; "))
	}
	return nil
}

func (m *Manager) getServer(serverURL string) (*server, bool) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	s, exists := m.servers[normalizeURL(serverURL)]
	return s, exists
}

// openServer opens the database and REST client of a server.
func (m *Manager) openServer(serverURL, token string) (*server, error) {
	var db *storage.Database
	var err error
	if m.baseDir == "" {
		db, err = storage.NewTemporaryDatabase(fileName(serverURL))
	} else {
		db, err = storage.NewDatabase(
			filepath.Join(m.baseDir, fileName(serverURL)+".db"))
	}
	if err != nil {
		return nil, errors.WithMessagef(err,
			"failed to open database of %s", serverURL)
	}

	return &server{
		url:   serverURL,
		token: token,
		db:    db,
		rest:  remote.NewClient(serverURL, token, m.params),
	}, nil
}

// close disconnects the websocket and closes the database.
func (s *server) close() error {
	if s.ws != nil {
		if err := s.ws.Close(); err != nil {
			jww.WARN.Printf("[SERVERS] Failed to disconnect from %s: %+v",
				s.url, err)
		}
		s.ws = nil
	}
	if err := s.db.Close(); err != nil {
		return errors.WithMessagef(err, "failed to close database of %s", s.url)
	}
	return nil
}

// normalizeURL drops trailing slashes so that the same server is always
// keyed the same way.
func normalizeURL(serverURL string) string {
	return strings.TrimRight(serverURL, "/")
}

var fileNameReplacer = strings.NewReplacer(
	"://", "_", "/", "_", ":", "_", "?", "_", "&", "_")

// fileName turns a server URL into a name safe for the file system.
func fileName(serverURL string) string {
	return fileNameReplacer.Replace(serverURL)
}
