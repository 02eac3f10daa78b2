////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package event

// Event types broadcast by the user-event reconciler.
const (
	UserTyping     = "USER_TYPING"
	UserStopTyping = "USER_STOP_TYPING"
)

// Callback receives every emitted event.
type Callback func(evt Event)

// Emitter is the sending half of the bus (used internally).
type Emitter interface {
	Emit(eventType string, data interface{})
}
