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

import "sort"

// Cap is a (protocol_code, version) capability pair.
type Cap struct {
	Name    string
	Version uint
}

func (c Cap) String() string { return c.Name }

// sortCaps sorts capabilities lexicographically by protocol code, as
// required for capability-list encoding.
func sortCaps(caps []Cap) []Cap {
	out := append([]Cap(nil), caps...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out
}

// negotiateCapabilities computes the agreed capability set between the
// locally advertised and remote-advertised lists: for each protocol code
// present in both, the highest common version wins. The result is sorted
// lexicographically by protocol code.
func negotiateCapabilities(local, remote []Cap) []Cap {
	localVersions := make(map[string]map[uint]bool)
	for _, c := range local {
		if localVersions[c.Name] == nil {
			localVersions[c.Name] = make(map[uint]bool)
		}
		localVersions[c.Name][c.Version] = true
	}
	remoteVersions := make(map[string]map[uint]bool)
	for _, c := range remote {
		if remoteVersions[c.Name] == nil {
			remoteVersions[c.Name] = make(map[uint]bool)
		}
		remoteVersions[c.Name][c.Version] = true
	}

	agreedVersion := make(map[string]uint)
	for name, lvs := range localVersions {
		rvs, ok := remoteVersions[name]
		if !ok {
			continue
		}
		best := uint(0)
		found := false
		for v := range lvs {
			if !rvs[v] {
				continue // not present on both sides
			}
			if !found || v > best {
				best, found = v, true
			}
		}
		if found {
			agreedVersion[name] = best
		}
	}
	var out []Cap
	for name, v := range agreedVersion {
		out = append(out, Cap{Name: name, Version: v})
	}
	return sortCaps(out)
}
