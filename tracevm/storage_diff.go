// (c) 2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import "sort"

// DeriveStorageChanges computes the storage summary of a run from its trace.
// A variable present in the first frame is reported when its last value
// differs from its first. A variable missing from the first frame was created
// by the run and is always reported as new; its previous value is the first
// value observed for it when that value was later overwritten, and empty
// otherwise. Changes are ordered by the frame in which the variable first
// changed or appeared, then by name.
func DeriveStorageChanges(trace []TraceFrame) []StorageChange {
	if len(trace) == 0 {
		return []StorageChange{}
	}

	type observed struct {
		first     string
		last      string
		changedAt int
	}
	seen := make(map[string]*observed)
	for i, frame := range trace {
		for variable, value := range frame.Storage {
			o, ok := seen[variable]
			if !ok {
				o = &observed{first: value, last: value, changedAt: -1}
				if i > 0 {
					o.changedAt = i
				}
				seen[variable] = o
				continue
			}
			if value != o.first && o.changedAt < 0 {
				o.changedAt = i
			}
			o.last = value
		}
	}

	names := make([]string, 0, len(seen))
	for variable, o := range seen {
		_, existed := trace[0].Storage[variable]
		if !existed || o.last != o.first {
			names = append(names, variable)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := seen[names[i]], seen[names[j]]
		if a.changedAt != b.changedAt {
			return a.changedAt < b.changedAt
		}
		return names[i] < names[j]
	})

	changes := make([]StorageChange, 0, len(names))
	for _, variable := range names {
		_, existed := trace[0].Storage[variable]
		o := seen[variable]
		previous := o.first
		if !existed && o.last == o.first {
			previous = ""
		}
		changes = append(changes, StorageChange{
			Variable:      variable,
			PreviousValue: previous,
			NewValue:      o.last,
			IsNew:         !existed,
		})
	}
	return changes
}
