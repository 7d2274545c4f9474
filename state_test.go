// Copyright (c) 2020–2024 The switchbox developers. All rights reserved.
// Project site: https://github.com/gotmc/switchbox
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package switchbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	require := require.New(t)

	want := map[State]string{
		Disconnected:        "disconnected",
		Idle:                "idle",
		HandshakeRequested:  "handshake-requested",
		AwaitingSize:        "awaiting-size",
		AwaitingCount:       "awaiting-count",
		TransmittingIndices: "transmitting-indices",
		AwaitingFinalize:    "awaiting-finalize",
		RelaysActive:        "relays-active",
		ResettingRegisters:  "resetting-registers",
		State(99):           "unknown",
	}
	for state, s := range want {
		require.Equal(s, state.String())
	}

	require.True(Idle.IsIdle())
	require.False(RelaysActive.IsIdle())
	require.True(RelaysActive.IsActive())
}
