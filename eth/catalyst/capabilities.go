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

// Package catalyst holds the engine-API glue between the consensus client
// and this node. Only the capability-exchange handshake lives here: the
// rest of the engine API (payload building, fork-choice updates) sits
// behind JSON-RPC transport this package doesn't provide.
package catalyst

import (
	"sort"

	"github.com/ethnode/corenet/internal/log"
)

// engineMethods is the table of engine-API methods this node implements,
// and whether each is currently switched on. A method can exist in the
// table but be inactive — e.g. a Shanghai-only method before the fork
// activates.
var engineMethods = map[string]bool{
	"engine_newPayloadV1":                      true,
	"engine_newPayloadV2":                      true,
	"engine_newPayloadV3":                      true,
	"engine_forkchoiceUpdatedV1":               true,
	"engine_forkchoiceUpdatedV2":               true,
	"engine_forkchoiceUpdatedV3":               true,
	"engine_getPayloadV1":                      true,
	"engine_getPayloadV2":                      true,
	"engine_getPayloadV3":                      true,
	"engine_exchangeTransitionConfigurationV1": true,
	"engine_getPayloadBodiesByHashV1":          true,
	"engine_getPayloadBodiesByRangeV1":         true,
}

// CapabilitiesHandler reconciles the set of engine-API methods this node
// has active against what the consensus client says it speaks.
type CapabilitiesHandler struct {
	methods map[string]bool
}

// NewCapabilitiesHandler builds a handler over the node's built-in engine
// method table.
func NewCapabilitiesHandler() *CapabilitiesHandler {
	return &CapabilitiesHandler{methods: engineMethods}
}

// Exchange returns the node's active engine capabilities, and logs a
// warning for every one of them the consensus client didn't list as
// supported. It never refuses or disconnects on a mismatch — this is
// advisory bookkeeping, not a handshake gate.
func (h *CapabilitiesHandler) Exchange(peerCapabilities map[string]struct{}) []string {
	var ours []string
	for method, active := range h.methods {
		if !active {
			continue
		}
		ours = append(ours, method)
		if _, ok := peerCapabilities[method]; !ok {
			log.Root().Warn("Engine API capability missing on consensus client", "method", method)
		}
	}
	sort.Strings(ours)
	return ours
}

// CapabilitiesSet is a convenience constructor for turning a flat method
// list — as received over the wire — into the set Exchange expects.
func CapabilitiesSet(methods []string) map[string]struct{} {
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		set[m] = struct{}{}
	}
	return set
}
