package core

import "fmt"

// Kind is the closed set of particle roles. The physical meaning is assigned
// by each lab (hydrogen/helium/neutron, nucleus/fragment, lattice site/ray...)
// but the engine only ever discriminates on these four.
type Kind uint8

const (
	KindPrimary Kind = iota
	KindSecondary
	KindByproduct
	KindEmission

	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindPrimary:
		return "primary"
	case KindSecondary:
		return "secondary"
	case KindByproduct:
		return "byproduct"
	case KindEmission:
		return "emission"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalJSON emits the kind name so exported runs and the live stream stay
// readable without a decoder table.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// ParseKind maps a config/wire name back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "primary":
		return KindPrimary, nil
	case "secondary":
		return KindSecondary, nil
	case "byproduct":
		return KindByproduct, nil
	case "emission":
		return KindEmission, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Kinds lists every valid kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindPrimary, KindSecondary, KindByproduct, KindEmission}
}

const (
	// EnergyMin and EnergyMax bound particle energy; energy drives visual
	// intensity and reaction eligibility, and is clamped on every mutation.
	EnergyMin = 0.0
	EnergyMax = 100.0
)

// Particle is one live particle. IDs are assigned monotonically per store and
// never reused. TTL is seconds of remaining life; zero means immortal
// (emission particles are seeded with a finite TTL, matter kinds are not).
type Particle struct {
	ID     uint64  `json:"id"`
	Kind   Kind    `json:"kind"`
	Pos    Vec2    `json:"pos"`
	Vel    Vec2    `json:"vel"`
	Energy float64 `json:"energy"`
	TTL    float64 `json:"ttl,omitempty"`
}

// Radius derives the display/collision radius from kind and energy. It is
// never stored or independently mutated.
func (p Particle) Radius() float64 {
	base := 2.0
	switch p.Kind {
	case KindPrimary:
		base = 3.0
	case KindSecondary:
		base = 2.5
	case KindByproduct:
		base = 3.5
	case KindEmission:
		base = 1.5
	}
	return base * (0.6 + 0.4*p.Energy/EnergyMax)
}

// SetEnergy clamps into [EnergyMin, EnergyMax].
func (p *Particle) SetEnergy(e float64) {
	p.Energy = clamp(e, EnergyMin, EnergyMax)
}

// Mortal reports whether the particle expires on its own.
func (p Particle) Mortal() bool {
	return p.TTL > 0
}
