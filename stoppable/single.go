////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package stoppable

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

const toStoppingErr = "cannot stop %q: status is %s instead of %s"

// Single stops one goroutine through its quit channel.
type Single struct {
	name   string
	quit   chan struct{}
	status uint32
	once   sync.Once
}

// NewSingle returns a running Single with the given name.
func NewSingle(name string) *Single {
	return &Single{
		name:   name,
		quit:   make(chan struct{}),
		status: uint32(Running),
	}
}

// Name returns the name of the Single.
func (s *Single) Name() string {
	return s.name
}

// GetStatus returns the current Status.
func (s *Single) GetStatus() Status {
	return Status(atomic.LoadUint32(&s.status))
}

func (s *Single) IsRunning() bool  { return s.GetStatus() == Running }
func (s *Single) IsStopping() bool { return s.GetStatus() == Stopping }
func (s *Single) IsStopped() bool  { return s.GetStatus() == Stopped }

// Quit is closed once Close is called. The goroutine owning the Single must
// call ToStopped when it exits.
func (s *Single) Quit() <-chan struct{} {
	return s.quit
}

// ToStopped marks the Single as stopped. Panics if Close was never called.
func (s *Single) ToStopped() {
	if !atomic.CompareAndSwapUint32(
		&s.status, uint32(Stopping), uint32(Stopped)) {
		jww.FATAL.Panicf("Failed to mark %q as %s: status is %s",
			s.name, Stopped, s.GetStatus())
	}
	jww.DEBUG.Printf("Stoppable %q switched to %s", s.name, Stopped)
}

// Close signals the goroutine to quit. Only the first call has an effect;
// calling Close on a Single that is not running returns an error.
func (s *Single) Close() error {
	var err error
	closed := false
	s.once.Do(func() {
		closed = true
		if !atomic.CompareAndSwapUint32(
			&s.status, uint32(Running), uint32(Stopping)) {
			err = errors.Errorf(toStoppingErr, s.name, s.GetStatus(), Running)
			return
		}
		jww.TRACE.Printf("Closing quit channel of stoppable %q", s.name)
		close(s.quit)
	})

	if !closed {
		err = errors.Errorf(toStoppingErr, s.name, s.GetStatus(), Running)
	}
	if err != nil {
		jww.ERROR.Print(err.Error())
	}
	return err
}
