package core

import (
	"iter"
	"math"
)

// Population describes the seeded particle population of a session.
// Dist weights are normalized; kinds with zero weight are never seeded.
type Population struct {
	Count       int
	Dist        map[Kind]float64
	Speed       float64
	Energy      float64
	EmissionTTL float64
}

// ParticleStore owns the live particles of exactly one session. Structural
// changes during a traversal must go through a [Batch] and are applied after
// the traversal completes, within the same tick.
type ParticleStore struct {
	particles []Particle
	index     map[uint64]int
	nextID    uint64
}

func NewParticleStore() *ParticleStore {
	return &ParticleStore{
		particles: make([]Particle, 0, 256),
		index:     make(map[uint64]int, 256),
		nextID:    1,
	}
}

// Seed populates the store with randomized positions and velocities inside
// bounds. Kind selection follows the normalized distribution weights.
func (s *ParticleStore) Seed(rng RNG, bounds Rect, pop Population) {
	total := 0.0
	for _, w := range pop.Dist {
		total += w
	}
	if total <= 0 || pop.Count <= 0 {
		return
	}

	// Cumulative weights in declaration order keep kind draws reproducible.
	kinds := Kinds()
	cum := make([]float64, 0, len(kinds))
	ordered := make([]Kind, 0, len(kinds))
	acc := 0.0
	for _, k := range kinds {
		w := pop.Dist[k]
		if w <= 0 {
			continue
		}
		acc += w / total
		cum = append(cum, acc)
		ordered = append(ordered, k)
	}

	for i := 0; i < pop.Count; i++ {
		k := ordered[len(ordered)-1]
		draw := rng.Float64()
		for j, c := range cum {
			if draw <= c {
				k = ordered[j]
				break
			}
		}

		p := Particle{
			Kind: k,
			Pos: Vec2{
				X: bounds.Min.X + rng.Float64()*bounds.Width(),
				Y: bounds.Min.Y + rng.Float64()*bounds.Height(),
			},
			Vel:    Vec2{X: pop.Speed, Y: 0}.Rotate(rng.Float64() * 2 * math.Pi),
			Energy: clamp(pop.Energy, EnergyMin, EnergyMax),
		}
		if k == KindEmission {
			p.TTL = pop.EmissionTTL
		}
		s.Add(p)
	}
}

// Add inserts a particle with a fresh identifier and returns it.
// IDs are monotonic and never reused.
func (s *ParticleStore) Add(p Particle) uint64 {
	p.ID = s.nextID
	s.nextID++
	s.particles = append(s.particles, p)
	s.index[p.ID] = len(s.particles) - 1
	return p.ID
}

// Remove deletes a particle immediately. Unknown IDs are ignored.
// Never call during a ForEach/Query traversal; batch instead.
func (s *ParticleStore) Remove(id uint64) {
	idx, ok := s.index[id]
	if !ok {
		return
	}
	last := len(s.particles) - 1
	if idx != last {
		s.particles[idx] = s.particles[last]
		s.index[s.particles[idx].ID] = idx
	}
	s.particles = s.particles[:last]
	delete(s.index, id)
}

// Get returns a copy of the particle with the given ID.
func (s *ParticleStore) Get(id uint64) (Particle, bool) {
	idx, ok := s.index[id]
	if !ok {
		return Particle{}, false
	}
	return s.particles[idx], true
}

// ForEach applies a mutable update to every live particle in store order.
// fn must not add or remove particles.
func (s *ParticleStore) ForEach(fn func(*Particle)) {
	for i := range s.particles {
		fn(&s.particles[i])
	}
}

// Query returns a lazy, restartable sequence of particle copies matching
// pred. A nil pred matches everything.
func (s *ParticleStore) Query(pred func(Particle) bool) iter.Seq[Particle] {
	return func(yield func(Particle) bool) {
		for i := range s.particles {
			p := s.particles[i]
			if pred == nil || pred(p) {
				if !yield(p) {
					return
				}
			}
		}
	}
}

// OfKind returns the lazy sequence of particles of one kind.
func (s *ParticleStore) OfKind(k Kind) iter.Seq[Particle] {
	return s.Query(func(p Particle) bool { return p.Kind == k })
}

func (s *ParticleStore) Count() int {
	return len(s.particles)
}

func (s *ParticleStore) CountKind(k Kind) int {
	n := 0
	for i := range s.particles {
		if s.particles[i].Kind == k {
			n++
		}
	}
	return n
}

// Batch collects structural changes made while a traversal is in progress.
// Consumed IDs are recorded in order so that applying a batch yields the same
// store layout for the same sequence of events, which the determinism
// guarantee depends on.
type Batch struct {
	consumed    []uint64
	consumedSet map[uint64]struct{}
	spawned     []Particle
}

func NewBatch() *Batch {
	return &Batch{consumedSet: make(map[uint64]struct{})}
}

// Consume marks a particle for removal. Returns false if it was already
// consumed this tick, which excludes it from later reaction stages.
func (b *Batch) Consume(id uint64) bool {
	if _, ok := b.consumedSet[id]; ok {
		return false
	}
	b.consumedSet[id] = struct{}{}
	b.consumed = append(b.consumed, id)
	return true
}

// Consumed reports whether the particle was consumed earlier this tick.
func (b *Batch) Consumed(id uint64) bool {
	_, ok := b.consumedSet[id]
	return ok
}

// Spawn queues a particle for insertion after the traversal.
func (b *Batch) Spawn(p Particle) {
	b.spawned = append(b.spawned, p)
}

func (b *Batch) Empty() bool {
	return len(b.consumed) == 0 && len(b.spawned) == 0
}

// Apply removes consumed particles and inserts spawned ones, in recorded
// order, then clears the batch for reuse.
func (s *ParticleStore) Apply(b *Batch) {
	for _, id := range b.consumed {
		s.Remove(id)
	}
	for _, p := range b.spawned {
		s.Add(p)
	}
	b.consumed = b.consumed[:0]
	b.spawned = b.spawned[:0]
	clear(b.consumedSet)
}
