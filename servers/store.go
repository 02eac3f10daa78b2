////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package servers

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/teamsync/storage/versioned"
	"gitlab.com/xx_network/primitives/netTime"
)

const (
	serverListVersion = 0
	serverListKey     = "ServerList"
	serverVersion     = 0
	serverKey         = "Server-"
	activeVersion     = 0
	activeKey         = "ActiveServer"
)

// storeUnsafe stores the list of servers without taking the lock. It must be
// called by a function that already holds it.
func (m *Manager) storeUnsafe() error {
	list := m.getServersUnsafe()

	data, err := json.Marshal(&list)
	if err != nil {
		return err
	}

	obj := &versioned.Object{
		Version:   serverListVersion,
		Timestamp: netTime.Now(),
		Data:      data,
	}

	return m.kv.Set(serverListKey, obj)
}

// loadServers opens every server in the stored list.
func (m *Manager) loadServers() error {
	obj, err := m.kv.Get(serverListKey, serverListVersion)
	if !m.kv.Exists(err) {
		return nil
	} else if err != nil {
		return errors.Errorf("failed to load server list: %+v", err)
	}

	var list []string
	if err = json.Unmarshal(obj.Data, &list); err != nil {
		return errors.Errorf("failed to decode server list: %+v", err)
	}

	for _, serverURL := range list {
		sd, err := loadServerDisk(m.kv, serverURL)
		if err != nil {
			return errors.WithMessagef(err, "failed to load server %s",
				serverURL)
		}

		s, err := m.openServer(sd.URL, sd.Token)
		if err != nil {
			return err
		}
		m.servers[serverURL] = s
	}

	jww.DEBUG.Printf("[SERVERS] Loaded %d servers", len(m.servers))
	return nil
}

// getServersUnsafe returns the sorted URLs of every server. Only call it while
// holding the lock.
func (m *Manager) getServersUnsafe() []string {
	list := make([]string, 0, len(m.servers))
	for serverURL := range m.servers {
		list = append(list, serverURL)
	}
	sort.Strings(list)
	return list
}

// serverDisk is the stored representation of a server.
type serverDisk struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// store writes the server to its own key.
func (s *server) store(kv *versioned.KV) error {
	data, err := json.Marshal(&serverDisk{URL: s.url, Token: s.token})
	if err != nil {
		return err
	}

	obj := &versioned.Object{
		Version:   serverVersion,
		Timestamp: netTime.Now(),
		Data:      data,
	}

	return kv.Set(makeServerKey(s.url), obj)
}

// delete removes the server from the kv.
func (s *server) delete(kv *versioned.KV) error {
	return kv.Delete(makeServerKey(s.url), serverVersion)
}

func loadServerDisk(kv *versioned.KV, serverURL string) (*serverDisk, error) {
	obj, err := kv.Get(makeServerKey(serverURL), serverVersion)
	if err != nil {
		return nil, err
	}

	sd := &serverDisk{}
	if err = json.Unmarshal(obj.Data, sd); err != nil {
		return nil, err
	}
	return sd, nil
}

func makeServerKey(serverURL string) string {
	return serverKey + serverURL
}

// storeActive persists the active server URL.
func (m *Manager) storeActive(serverURL string) error {
	obj := &versioned.Object{
		Version:   activeVersion,
		Timestamp: netTime.Now(),
		Data:      []byte(serverURL),
	}
	return m.kv.Set(activeKey, obj)
}

// loadActive returns the persisted active server URL.
func (m *Manager) loadActive() (string, error) {
	obj, err := m.kv.Get(activeKey, activeVersion)
	if !m.kv.Exists(err) {
		return "", NoActiveServerErr
	} else if err != nil {
		return "", errors.Errorf("failed to load active server: %+v", err)
	}
	return string(obj.Data), nil
}

func (m *Manager) deleteActive() error {
	return m.kv.Delete(activeKey, activeVersion)
}
