// Copyright (c) 2020–2024 The switchbox developers. All rights reserved.
// Project site: https://github.com/gotmc/switchbox
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package switchbox

// Wire tokens for the switchbox handshake protocol. All traffic is
// newline-delimited ASCII at 9600 baud. The device-side strings must match
// the firmware byte for byte, misspellings included; see firmware.ino in the
// switchbox hardware repo before "fixing" any of them.

// Host → device.
const (
	CmdReady        = "READY"
	CmdStartRecv    = "START_RCV"
	CmdMakeArray    = "MK_ARRAY"
	CmdStart        = "START"
	CmdSetRegisters = "SET_REGISTERS"
	CmdIdle         = "IDLE"
	CmdReset        = "RESET"
)

// Device → host.
const (
	// MsgBanner is printed by the firmware once its setup() has finished.
	// Nothing may be written to the device before this line is seen; the
	// UART buffer is not serviced until the main loop starts.
	MsgBanner = "Send 'READY' to begin input array reception."

	MsgGiveNum        = "GIVE_NUM"
	MsgGiveRelays     = "GIVE_RELAYS"
	MsgRelaysReceived = "RELAYS_RECIEVED"
	MsgArrayReceived  = "ARRAY RECEIVED"
	MsgFinished       = "FINISHED"
	MsgResetDone      = "READY RECIEVED"
)

// NumChannels is the size of the relay bank. Callers address relays 1..110;
// the wire protocol carries 0-based indices.
const NumChannels = 110
