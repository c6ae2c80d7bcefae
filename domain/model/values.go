package model

import "strings"

// Values represents Helm chart values as a nested map.
type Values map[string]any

// Set assigns value at a dotted path such as "node.image.repository",
// creating intermediate maps. Keys themselves never contain dots.
func (v Values) Set(path string, value any) Values {
	keys := strings.Split(path, ".")
	m := map[string]any(v)
	for _, k := range keys[:len(keys)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[k] = next
		}
		m = next
	}
	m[keys[len(keys)-1]] = value
	return v
}

// SetIf assigns value only when it is not the empty string.
func (v Values) SetIf(path, value string) Values {
	if value != "" {
		v.Set(path, value)
	}
	return v
}

// Get returns the value at a dotted path.
func (v Values) Get(path string) (any, bool) {
	var cur any = map[string]any(v)
	for _, k := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[k]; !ok {
			return nil, false
		}
	}
	return cur, true
}
