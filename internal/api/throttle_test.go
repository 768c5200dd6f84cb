// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottle_AllowsUpToLimitThenRejects(t *testing.T) {
	th := NewThrottle(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, th.Allow("key-a"))
	}
	assert.False(t, th.Allow("key-a"))
}

func TestThrottle_EmptyKeyNeverThrottled(t *testing.T) {
	th := NewThrottle(1, time.Minute)

	for i := 0; i < 10; i++ {
		assert.True(t, th.Allow(""))
	}
}

func TestThrottle_KeysAreIndependent(t *testing.T) {
	th := NewThrottle(1, time.Minute)

	require.True(t, th.Allow("key-a"))
	require.True(t, th.Allow("key-b"))
	assert.False(t, th.Allow("key-a"))
	assert.False(t, th.Allow("key-b"))
}

func TestThrottle_WindowResetsAfterElapsed(t *testing.T) {
	th := NewThrottle(1, 50*time.Millisecond)

	require.True(t, th.Allow("key-a"))
	require.False(t, th.Allow("key-a"))

	time.Sleep(80 * time.Millisecond)
	assert.True(t, th.Allow("key-a"))
}

func TestThrottle_SweepRemovesElapsedBuckets(t *testing.T) {
	th := NewThrottle(1, 10*time.Millisecond)
	th.Allow("key-a")
	time.Sleep(20 * time.Millisecond)

	th.Sweep()

	th.mu.Lock()
	_, present := th.buckets["key-a"]
	th.mu.Unlock()
	assert.False(t, present)
}
