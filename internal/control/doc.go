// Package control provides drivers that steer a running session.
//
// Drivers implement the [core.Driver] interface: each tick they see the
// latest snapshot and queue intents for the next one:
//
//   - [PID]: holds an observable at a setpoint by actuating one knob
//   - [Scripted]: replays a timed list of knob moves and injections
//   - [Manual]: forwards intents queued from another goroutine (TUI, GUI)
//   - [None]: leaves the session alone
//
// # Usage
//
//	pid := control.NewPID("temperature", "heater", 2.0, 0.1, 0.5, 300)
//	sess.SetDriver(pid)
//	// Drive is called once per tick with the fresh snapshot
//
// Drivers with live-tunable parameters expose GetParams/SetParam.
package control
