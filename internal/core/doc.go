// Package core provides the particle/field simulation and phase-transition engine.
//
// A [Session] owns one isolated simulation instance: a [ParticleStore] of live
// particles, a [Field] that moves them, a [Rules] set that probabilistically
// transforms them, an [ObservableSet] of clamped scalar state, a [PhaseMachine]
// driving the discrete phase progression, and an [EffectQueue] of short-lived
// visual markers. Each tick runs the stages in a fixed order:
//
//	intents -> field -> reactions -> drift -> phase machine -> effect expiry -> snapshot
//
// All probabilities and drift rates are per simulated second and are scaled by
// the tick delta, so tick rate does not change the physics.
//
// # Example
//
//	def := labs.Get("fusion").Definition()
//	sess, _ := core.NewSession(def, 42)
//	sess.Step(1.0 / 60.0)
//
// # Thread Safety
//
// Session instances are NOT thread-safe; one goroutine drives a session.
// Intents queued from other goroutines via [Session.Queue] are the only safe
// cross-goroutine entry point and take effect at the next tick boundary.
package core
