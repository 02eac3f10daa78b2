////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package stoppable tracks the lifecycle of long-running goroutines such as
// the event dispatcher and the websocket readers.
package stoppable

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gitlab.com/xx_network/primitives/netTime"
)

const timeoutErr = "timed out after %s waiting for %q to stop"

// Stoppable is implemented by anything that runs in the background and can be
// asked to quit.
type Stoppable interface {
	Close() error
	GetStatus() Status
	IsRunning() bool
	IsStopping() bool
	IsStopped() bool
	Name() string
}

// Status is the lifecycle state of a Stoppable.
type Status uint32

const (
	Running Status = iota
	Stopping
	Stopped
)

// String prints a human-readable form of the Status.
func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "INVALID STATUS " + strconv.FormatUint(uint64(s), 10)
	}
}

// WaitForStopped polls the Stoppable until it reports Stopped or the timeout
// elapses.
func WaitForStopped(s Stoppable, timeout time.Duration) error {
	deadline := netTime.Now().Add(timeout)
	for !s.IsStopped() {
		if netTime.Now().After(deadline) {
			return errors.Errorf(timeoutErr, timeout, s.Name())
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}
