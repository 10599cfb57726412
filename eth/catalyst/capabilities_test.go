// Copyright 2024 The corenet Authors
// This file is part of the corenet library.
//
// The corenet library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The corenet library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the corenet library. If not, see <http://www.gnu.org/licenses/>.

package catalyst

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExchangeReturnsOnlyActiveMethods(t *testing.T) {
	h := &CapabilitiesHandler{methods: map[string]bool{
		"engine_newPayloadV3":        true,
		"engine_getPayloadBodiesV99": false, // present in the table but switched off
	}}
	got := h.Exchange(CapabilitiesSet([]string{"engine_newPayloadV3"}))
	require.Equal(t, []string{"engine_newPayloadV3"}, got)
}

func TestExchangeIsSortedAndStable(t *testing.T) {
	h := &CapabilitiesHandler{methods: map[string]bool{
		"engine_getPayloadV2": true,
		"engine_newPayloadV1": true,
		"engine_forkchoiceUpdatedV1": true,
	}}
	got := h.Exchange(CapabilitiesSet(nil))
	require.Equal(t, []string{
		"engine_forkchoiceUpdatedV1",
		"engine_getPayloadV2",
		"engine_newPayloadV1",
	}, got)
}

func TestExchangeNeverErrorsOnMismatch(t *testing.T) {
	h := NewCapabilitiesHandler()
	// an empty peer capability set means every active method is "missing" —
	// Exchange must still return our full active list, not refuse or panic.
	got := h.Exchange(CapabilitiesSet(nil))
	require.NotEmpty(t, got)
	require.Contains(t, got, "engine_newPayloadV3")
}

func TestExchangeKeepsMethodMissingFromPeerListInResult(t *testing.T) {
	h := &CapabilitiesHandler{methods: map[string]bool{"engine_newPayloadV3": true}}
	// peer only knows an unrelated method; ours is still reported as active.
	got := h.Exchange(CapabilitiesSet([]string{"engine_getPayloadV2"}))
	require.Equal(t, []string{"engine_newPayloadV3"}, got)
}

func TestCapabilitiesSetBuildsLookupFromSlice(t *testing.T) {
	set := CapabilitiesSet([]string{"a", "b", "a"})
	require.Len(t, set, 2)
	_, ok := set["a"]
	require.True(t, ok)
}
