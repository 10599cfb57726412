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

// Package metrics holds named counters (for names such as
// Eth66GetBlockHeadersReceived), each created on first use. It counts
// only; exporting metrics to a scrape endpoint is an explicit non-goal, so
// there is no HTTP handler here.
package metrics

import gometrics "github.com/rcrowley/go-metrics"

var registry = gometrics.NewRegistry()

// GetOrRegisterCounter returns the named counter, creating it on first use.
func GetOrRegisterCounter(name string) gometrics.Counter {
	return gometrics.GetOrRegisterCounter(name, registry)
}

// Inc increments the named counter by one. Components call this instead of
// holding onto a Counter handle, keeping call sites a one-liner.
func Inc(name string) {
	GetOrRegisterCounter(name).Inc(1)
}

// Snapshot returns the current value of every registered counter, keyed by
// name.
func Snapshot() map[string]int64 {
	out := make(map[string]int64)
	registry.Each(func(name string, i interface{}) {
		if c, ok := i.(gometrics.Counter); ok {
			out[name] = c.Count()
		}
	})
	return out
}
