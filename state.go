// Copyright (c) 2020–2024 The switchbox developers. All rights reserved.
// Project site: https://github.com/gotmc/switchbox
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package switchbox

// State represents the host's position in the switchbox handshake protocol.
// The session only advances state on a confirmation line from the device; it
// never moves forward speculatively.
type State uint32

// Protocol states. The names follow the firmware's own state machine where
// the two overlap.
const (
	// Disconnected means the boot banner has not been seen yet.
	Disconnected State = iota
	// Idle means the device announced readiness and no exchange is in
	// flight.
	Idle
	// HandshakeRequested means READY was sent and the host is waiting for
	// GIVE_NUM.
	HandshakeRequested
	// AwaitingSize means the relay count was sent and the host is waiting
	// for the device to acknowledge it.
	AwaitingSize
	// AwaitingCount means START_RCV was sent and the host is waiting for
	// GIVE_RELAYS.
	AwaitingCount
	// TransmittingIndices means the host is streaming relay indices and
	// waiting for RELAYS_RECIEVED.
	TransmittingIndices
	// AwaitingFinalize means MK_ARRAY/START were sent and the host is
	// waiting for the device to build and latch the activation table.
	AwaitingFinalize
	// RelaysActive means FINISHED was received; the requested relays are
	// physically closed until Reset.
	RelaysActive
	// ResettingRegisters means RESET was sent and the host is waiting for
	// READY RECIEVED.
	ResettingRegisters
)

// IsIdle returns true when the session is connected with no exchange in
// flight.
func (s State) IsIdle() bool { return s == Idle }

// IsActive returns true when relays are energized.
func (s State) IsActive() bool { return s == RelaysActive }

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Idle:
		return "idle"
	case HandshakeRequested:
		return "handshake-requested"
	case AwaitingSize:
		return "awaiting-size"
	case AwaitingCount:
		return "awaiting-count"
	case TransmittingIndices:
		return "transmitting-indices"
	case AwaitingFinalize:
		return "awaiting-finalize"
	case RelaysActive:
		return "relays-active"
	case ResettingRegisters:
		return "resetting-registers"
	default:
		return "unknown"
	}
}
