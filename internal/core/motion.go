package core

// Mover integrates one particle's motion for a tick given the accumulated
// acceleration. The acceleration is constant within the tick, so only
// low-order steppers make sense here.
type Mover interface {
	Move(p *Particle, acc Vec2, dt float64)
}

// Euler is the semi-implicit (symplectic) Euler stepper: velocity first,
// then position with the updated velocity. Default for every lab.
type Euler struct{}

func NewEuler() *Euler { return &Euler{} }

func (Euler) Move(p *Particle, acc Vec2, dt float64) {
	p.Vel = p.Vel.Add(acc.Scale(dt))
	p.Pos = p.Pos.Add(p.Vel.Scale(dt))
}

// Verlet advances position with the half-acceleration term before kicking
// the velocity. Slightly smoother trajectories for gravity-heavy labs.
type Verlet struct{}

func NewVerlet() *Verlet { return &Verlet{} }

func (Verlet) Move(p *Particle, acc Vec2, dt float64) {
	p.Pos = p.Pos.Add(p.Vel.Scale(dt)).Add(acc.Scale(0.5 * dt * dt))
	p.Vel = p.Vel.Add(acc.Scale(dt))
}

// MoverByName maps config names to steppers. Unknown names fall back to the
// Euler default.
func MoverByName(name string) Mover {
	switch name {
	case "verlet":
		return NewVerlet()
	default:
		return NewEuler()
	}
}
