// Copyright (c) 2020–2024 The switchbox developers. All rights reserved.
// Project site: https://github.com/gotmc/switchbox
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package switchbox

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDeviceNotFound indicates that no serial port matched the switchbox
	// hardware ID during autodiscovery.
	ErrDeviceNotFound = errors.New("no switchbox device found")

	// ErrConnectTimeout indicates that the firmware's boot banner was not
	// observed within the connect timeout. The session is unusable.
	ErrConnectTimeout = errors.New("timed out waiting for switchbox boot banner")

	// ErrClosed indicates the session was closed, or the device closed the
	// serial link underneath it.
	ErrClosed = errors.New("session closed")
)

var (
	// ErrProtocolTimeout indicates an expected confirmation line never
	// arrived within its step's timeout. Returned wrapped inside a
	// *ProtocolTimeoutError carrying the state in which the wait occurred.
	ErrProtocolTimeout = errors.New("protocol timeout")

	// ErrSessionFaulted indicates Activate was called after a protocol
	// timeout without an intervening successful Reset. The session never
	// silently resumes mid-protocol.
	ErrSessionFaulted = errors.New("session faulted, reset required")

	// ErrInvalidTransition indicates the requested operation is not valid
	// in the session's current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidRelayIndex indicates a relay number outside [1, NumChannels]
	// was supplied. Advisory: the offending index is dropped and the rest of
	// the selection proceeds.
	ErrInvalidRelayIndex = errors.New("relay index out of range")
)

// ProtocolTimeoutError records a missed confirmation: the state in which the
// host was waiting, the token it expected, and how long it waited. It unwraps
// to ErrProtocolTimeout.
type ProtocolTimeoutError struct {
	State  State
	Expect string
	After  time.Duration
}

func (e *ProtocolTimeoutError) Error() string {
	return fmt.Sprintf("protocol timeout in state %s: no %q within %s",
		e.State, e.Expect, e.After)
}

func (e *ProtocolTimeoutError) Unwrap() error { return ErrProtocolTimeout }
