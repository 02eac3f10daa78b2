////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package users

import (
	"strconv"
	"sync"
	"time"

	jww "github.com/spf13/jwalterweatherman"
)

// defaultTypingDelay is the server default for
// TimeBetweenUserTypingUpdatesMilliseconds.
const defaultTypingDelay = 5000 * time.Millisecond

// typingDelay parses the configured interval between typing updates.
func typingDelay(config ClientConfig) time.Duration {
	raw, exists := config[ConfigTimeBetweenTyping]
	if !exists {
		return defaultTypingDelay
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms < 0 {
		jww.WARN.Printf("Invalid %s %q, using %s", ConfigTimeBetweenTyping,
			raw, defaultTypingDelay)
		return defaultTypingDelay
	}
	return time.Duration(ms) * time.Millisecond
}

type typingKey struct {
	channelID string
	rootID    string
	userID    string
}

// typingTracker holds one pending stop timer per (channel, root, user). A new
// typing event replaces the pending timer of its key.
type typingTracker struct {
	timers map[typingKey]*time.Timer
	stop   func(data TypingData)
	mux    sync.Mutex
}

func newTypingTracker(stop func(data TypingData)) *typingTracker {
	return &typingTracker{
		timers: make(map[typingKey]*time.Timer),
		stop:   stop,
	}
}

// schedule arranges for stop to be called with data after delay.
func (tt *typingTracker) schedule(data TypingData, delay time.Duration) {
	key := typingKey{data.ChannelID, data.RootID, data.UserID}

	tt.mux.Lock()
	defer tt.mux.Unlock()

	if pending, exists := tt.timers[key]; exists {
		pending.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		tt.mux.Lock()
		if tt.timers[key] != timer {
			// Replaced by a newer typing event
			tt.mux.Unlock()
			return
		}
		delete(tt.timers, key)
		tt.mux.Unlock()

		tt.stop(data)
	})
	tt.timers[key] = timer
}

// pending returns the number of scheduled stop signals.
func (tt *typingTracker) pending() int {
	tt.mux.Lock()
	defer tt.mux.Unlock()
	return len(tt.timers)
}

// stopAll cancels every pending stop signal.
func (tt *typingTracker) stopAll() {
	tt.mux.Lock()
	defer tt.mux.Unlock()
	for key, timer := range tt.timers {
		timer.Stop()
		delete(tt.timers, key)
	}
}
