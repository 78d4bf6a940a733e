package labs

import (
	"fmt"
	"sort"

	"github.com/arvi-k/physlab/internal/core"
)

// Lab is one registered mini-game: a display identity plus a factory for its
// complete definition. Definitions are rebuilt per call so sessions never
// share mutable rule state.
type Lab struct {
	Name    string
	Tagline string

	// Kinds maps engine kinds to this lab's display vocabulary
	// (primary -> "deuterium ion", emission -> "neutron", ...).
	Kinds map[core.Kind]string

	// Seed is the default when the caller does not pick one.
	Seed int64

	build func() core.Definition
}

// Definition builds a fresh definition for this lab.
func (l Lab) Definition() core.Definition { return l.build() }

// NewSession builds a session for this lab with the given seed.
func (l Lab) NewSession(seed int64) (*core.Session, error) {
	return core.NewSession(l.build(), seed)
}

// KindName resolves a kind to the lab's display name, falling back to the
// engine name.
func (l Lab) KindName(k core.Kind) string {
	if n, ok := l.Kinds[k]; ok {
		return n
	}
	return k.String()
}

var registry = map[string]Lab{}

func register(l Lab) {
	if _, dup := registry[l.Name]; dup {
		panic("labs: duplicate registration of " + l.Name)
	}
	registry[l.Name] = l
}

// Get returns the named lab.
func Get(name string) (Lab, error) {
	l, ok := registry[name]
	if !ok {
		return Lab{}, fmt.Errorf("labs: unknown lab %q (have %v)", name, Names())
	}
	return l, nil
}

// Names lists registered labs in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered lab, sorted by name.
func All() []Lab {
	out := make([]Lab, 0, len(registry))
	for _, name := range Names() {
		out = append(out, registry[name])
	}
	return out
}

// Shared geometry: every lab plays on the same stage so renderers need no
// per-lab scaling.
var stage = core.Rect{Min: core.Vec2{X: 0, Y: 0}, Max: core.Vec2{X: 800, Y: 600}}

func stageCenter() core.Vec2 { return stage.Center() }
