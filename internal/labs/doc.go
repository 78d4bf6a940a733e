// Package labs is the catalog of built-in simulation scenarios.
//
// Each lab bundles a complete [core.Definition] — population, field
// constants, reaction rules, observables, phase table, knobs — behind a
// name and a factory:
//
//   - [Get] resolves a lab by name
//   - [Names] and [All] enumerate the catalog
//   - [Lab.NewSession] builds a ready-to-step session
//
// The built-in labs:
//
//   - chain: neutron chain reaction in a fissile sample, moderator and
//     reflector knobs steering it between idle, critical, supercritical
//     and burnout
//   - fusion: magnetically confined plasma heated toward ignition; the
//     flagship lab with a five-phase ladder ending in fuel exhaustion
//   - decay: a radioactive sample working through a two-step decay chain,
//     activity falling monotonically to inert
//   - detonation: a compression-driven criticality device with an armed
//     state, a triggered detonation and a rate surge while it lasts
//   - irradiation: a material sample under a particle beam, accumulating
//     lattice damage until structural failure
//
// Typical use:
//
//	lab, err := labs.Get("fusion")
//	if err != nil {
//		return err
//	}
//	sess, err := lab.NewSession(lab.Seed)
//	if err != nil {
//		return err
//	}
//	sess.Step(1.0 / 60.0)
//
// Definitions are rebuilt on every call to [Lab.Definition], so two
// sessions of the same lab never share rule or hook state.
package labs
