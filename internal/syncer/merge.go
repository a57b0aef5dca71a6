package syncer

import (
	"fmt"
)

// userAuthoredFields are the fields a user types in by hand. On a merge
// resolution the local side wins for these regardless of which copy is
// newer; everything else keeps the remote value.
var userAuthoredFields = []string{
	"description", "amount", "category", "notes", "tags",
	"name", "color", "icon", "keywords",
}

// unionFields are array-valued fields merged as a duplicate-free union
// when both sides define them, instead of the plain local overwrite.
var unionFields = map[string]struct{}{
	"tags":     {},
	"keywords": {},
}

// mergeFields computes the merge-resolution field bag: remote is the
// base, local overwrites the user-authored fields it defines, and tag
// sets union.
func mergeFields(local, remote map[string]any) map[string]any {
	merged := make(map[string]any, len(remote)+len(local))
	for k, v := range remote {
		merged[k] = v
	}

	for _, field := range userAuthoredFields {
		lv, ok := local[field]
		if !ok {
			continue
		}

		if _, isUnion := unionFields[field]; isUnion {
			if rv, defined := remote[field]; defined {
				merged[field] = unionValues(lv, rv)
				continue
			}
		}

		merged[field] = lv
	}

	return merged
}

// unionValues merges two JSON arrays keeping the first occurrence of
// each element, local entries first. Falls back to the local value when
// either side is not an array.
func unionValues(local, remote any) any {
	la, lok := local.([]any)
	ra, rok := remote.([]any)

	if !lok || !rok {
		return local
	}

	out := make([]any, 0, len(la)+len(ra))
	seen := make(map[string]struct{}, len(la)+len(ra))

	for _, v := range la {
		key := fmt.Sprintf("%v", v)
		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}

		out = append(out, v)
	}

	for _, v := range ra {
		key := fmt.Sprintf("%v", v)
		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}

		out = append(out, v)
	}

	return out
}
