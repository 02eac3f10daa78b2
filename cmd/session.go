////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
	"gitlab.com/elixxir/ekv"
	"gitlab.com/elixxir/teamsync/event"
	"gitlab.com/elixxir/teamsync/remote"
	"gitlab.com/elixxir/teamsync/servers"
	"gitlab.com/elixxir/teamsync/stoppable"
	"gitlab.com/elixxir/teamsync/storage/versioned"
	"gitlab.com/elixxir/teamsync/users"
)

const (
	kvDirName     = "kv"
	dbDirName     = "db"
	stopTimeout   = 5 * time.Second
	typingPrinter = "cliTypingPrinter"
)

// session holds everything a command needs to talk to its servers.
type session struct {
	mgr        *servers.Manager
	events     *event.Manager
	eventStop  stoppable.Stoppable
	reconciler *users.Reconciler
}

// initSession opens the session storage, adds the server given on the command
// line, selects the active server and starts the event bus.
func initSession() *session {
	initLog(viper.GetUint(logLevelFlag), viper.GetString(logFlag))

	kv := versioned.NewKV(openKV())

	dbDir := ""
	if sessionDir := viper.GetString(sessionFlag); sessionDir != "" {
		dbDir = filepath.Join(sessionDir, dbDirName)
		if err := os.MkdirAll(dbDir, 0700); err != nil {
			jww.FATAL.Panicf("Failed to create %s: %+v", dbDir, err)
		}
	}

	params := remote.GetDefaultParams()
	params.RequestsPerSecond = viper.GetInt(requestRateFlag)
	params.Timeout = viper.GetDuration(requestTimeoutFlag)

	mgr, err := servers.NewManager(kv, dbDir, params)
	if err != nil {
		jww.FATAL.Panicf("Failed to load servers: %+v", err)
	}

	if serverURL := viper.GetString(serverFlag); serverURL != "" {
		err = mgr.AddServer(serverURL, viper.GetString(tokenFlag))
		if err != nil && !errors.Is(err, servers.ServerAlreadyExistsErr) {
			jww.FATAL.Panicf("Failed to add server %s: %+v", serverURL, err)
		}
		if _, err = mgr.GetActiveServerURL(); err != nil {
			setActive(mgr, serverURL)
		}
	}

	if active := viper.GetString(activeFlag); active != "" {
		setActive(mgr, active)
	}

	events := event.NewManager()
	err = events.RegisterCallback(typingPrinter, func(evt event.Event) {
		jww.INFO.Printf("%s", evt)
	})
	if err != nil {
		jww.FATAL.Panicf("%+v", err)
	}
	eventStop, err := events.EventService()
	if err != nil {
		jww.FATAL.Panicf("Failed to start event service: %+v", err)
	}

	return &session{
		mgr:        mgr,
		events:     events,
		eventStop:  eventStop,
		reconciler: users.NewReconciler(mgr, mgr, mgr, mgr, events),
	}
}

// openKV opens the encrypted session store, or a memory store if no session
// directory is set.
func openKV() ekv.KeyValue {
	sessionDir := viper.GetString(sessionFlag)
	if sessionDir == "" {
		jww.WARN.Printf("No session directory set, nothing will be saved")
		return ekv.MakeMemstore()
	}

	fs, err := ekv.NewFilestore(filepath.Join(sessionDir, kvDirName),
		viper.GetString(passwordFlag))
	if err != nil {
		jww.FATAL.Panicf("Failed to open session in %s: %+v", sessionDir, err)
	}
	return fs
}

func setActive(mgr *servers.Manager, serverURL string) {
	if err := mgr.SetActiveServer(serverURL); err != nil {
		jww.FATAL.Panicf("Failed to set active server: %+v", err)
	}
	jww.INFO.Printf("Active server: %s", serverURL)
}

// connect bootstraps and connects the server unless bootstrapping was turned
// off.
func (s *session) connect(serverURL string) error {
	if !viper.GetBool(skipBootstrapFlag) {
		if err := s.mgr.Bootstrap(serverURL); err != nil {
			return err
		}
	}
	return s.mgr.Connect(serverURL, s.reconciler)
}

// close stops the reconciler, the event bus and every server connection.
func (s *session) close() {
	s.reconciler.Stop()

	if err := s.eventStop.Close(); err == nil {
		err = stoppable.WaitForStopped(s.eventStop, stopTimeout)
		if err != nil {
			jww.ERROR.Printf("%+v", err)
		}
	}

	if err := s.mgr.Close(); err != nil {
		jww.ERROR.Printf("Failed to close servers: %+v", err)
	}
}
