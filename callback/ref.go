package callback

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Ref names one signal: a property of a component.
type Ref struct {
	ComponentID string `json:"component_id" yaml:"component_id"`
	Property    string `json:"property" yaml:"property"`
}

func NewRef(componentID, property string) Ref {
	return Ref{ComponentID: componentID, Property: property}
}

func (r Ref) String() string { return r.ComponentID + "." + r.Property }

// ParseRef reads the "id.property" form produced by String. The property is
// everything after the last dot.
func ParseRef(s string) (Ref, error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return Ref{}, fmt.Errorf("callback: malformed ref %q", s)
	}
	return Ref{ComponentID: s[:i], Property: s[i+1:]}, nil
}

// IsPattern reports whether the component id carries glob metacharacters.
func (r Ref) IsPattern() bool {
	return strings.ContainsAny(r.ComponentID, "*?[{")
}

// Matches reports whether o is addressed by r. Pattern refs match by glob on
// the component id; the property must always be equal.
func (r Ref) Matches(o Ref) bool {
	if r == o {
		return true
	}
	if r.Property != o.Property || !r.IsPattern() {
		return false
	}
	ok, err := doublestar.Match(r.ComponentID, o.ComponentID)
	return err == nil && ok
}

// Union returns the first-seen union of the given ref lists and, for each
// list, the positions of its refs inside the union.
func Union(lists ...[]Ref) ([]Ref, [][]int) {
	var all []Ref
	index := map[Ref]int{}
	mappings := make([][]int, len(lists))
	for i, l := range lists {
		mappings[i] = make([]int, len(l))
		for j, r := range l {
			pos, ok := index[r]
			if !ok {
				pos = len(all)
				index[r] = pos
				all = append(all, r)
			}
			mappings[i][j] = pos
		}
	}
	return all, mappings
}

func cloneRefs(in []Ref) []Ref {
	if in == nil {
		return nil
	}
	return append([]Ref(nil), in...)
}
