package types

import "sort"

// Type tags of the known entity types.
const (
	KindBaseModel = "BaseModel"
	KindUser      = "User"
)

// kinds is the closed set of types Reconstruct and New can build.
// Each constructor returns a zero entity with an empty attribute map.
var kinds = map[string]func() Entity{
	KindBaseModel: func() Entity { return &BaseModel{Base: Base{attrs: map[string]any{}}} },
	KindUser:      func() Entity { return &User{Base: Base{attrs: map[string]any{}}} },
}

// Known reports whether name is a known type tag. Matching is exact and
// case-sensitive.
func Known(name string) bool {
	_, ok := kinds[name]
	return ok
}

// Names returns the known type tags in sorted order.
func Names() []string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
