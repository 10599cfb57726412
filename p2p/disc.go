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

package p2p

// DiscReason is the canonical RLPx disconnect reason enumeration: the full
// standard set, so the session state machine and node-stats delay table
// have a complete lookup domain.
type DiscReason uint

const (
	DiscRequested DiscReason = iota
	DiscNetworkError
	DiscProtocolError // BreachOfProtocol
	DiscUselessPeer
	DiscTooManyPeers
	DiscAlreadyConnected
	DiscIncompatibleVersion
	DiscInvalidIdentity
	DiscQuitting // ClientQuitting
	DiscUnexpectedIdentity
	DiscSelf
	DiscReadTimeout
	DiscSubprotocolError
	DiscOther
)

var discReasonNames = map[DiscReason]string{
	DiscRequested:           "disconnect requested",
	DiscNetworkError:        "network error",
	DiscProtocolError:       "breach of protocol",
	DiscUselessPeer:         "useless peer",
	DiscTooManyPeers:        "too many peers",
	DiscAlreadyConnected:    "already connected",
	DiscIncompatibleVersion: "incompatible p2p version",
	DiscInvalidIdentity:     "invalid node identity",
	DiscQuitting:            "client quitting",
	DiscUnexpectedIdentity:  "unexpected identity",
	DiscSelf:                "connected to self",
	DiscReadTimeout:         "read timeout",
	DiscSubprotocolError:    "subprotocol error",
	DiscOther:               "other",
}

func (r DiscReason) String() string {
	if s, ok := discReasonNames[r]; ok {
		return s
	}
	return "unknown disconnect reason"
}

func (r DiscReason) Error() string { return r.String() }

// discReasonTags are the canonical identifier spellings used as node-stats
// event tags ("UselessPeer", "Other", etc.), not the human-readable debug
// strings from String().
var discReasonTags = map[DiscReason]string{
	DiscRequested:           "Requested",
	DiscNetworkError:        "NetworkError",
	DiscProtocolError:       "BreachOfProtocol",
	DiscUselessPeer:         "UselessPeer",
	DiscTooManyPeers:        "TooManyPeers",
	DiscAlreadyConnected:    "AlreadyConnected",
	DiscIncompatibleVersion: "IncompatibleP2PVersion",
	DiscInvalidIdentity:     "InvalidIdentity",
	DiscQuitting:            "ClientQuitting",
	DiscUnexpectedIdentity:  "UnexpectedIdentity",
	DiscSelf:                "Self",
	DiscReadTimeout:         "ReadTimeout",
	DiscSubprotocolError:    "SubprotocolError",
	DiscOther:               "Other",
}

// Tag returns the canonical PascalCase identifier for r, used to key the
// node-stats reconnection-delay table.
func (r DiscReason) Tag() string {
	if s, ok := discReasonTags[r]; ok {
		return s
	}
	return "Other"
}
