package control

import "github.com/arvi-k/physlab/internal/core"

// PID holds one observable at a setpoint by writing one knob each tick.
// Output is clamped to [Lo, Hi]; the integral freezes while saturated so a
// long excursion does not wind up and overshoot on the way back.
type PID struct {
	Observable string
	Knob       string
	Kp         float64
	Ki         float64
	Kd         float64
	Target     float64
	Lo         float64
	Hi         float64
	integral   float64
	prevErr    float64
	prevT      float64
	first      bool
}

func NewPID(observable, knob string, kp, ki, kd, target float64) *PID {
	return &PID{
		Observable: observable,
		Knob:       knob,
		Kp:         kp,
		Ki:         ki,
		Kd:         kd,
		Target:     target,
		Lo:         0,
		Hi:         100,
		first:      true,
	}
}

// SetLimits bounds the knob output. Defaults to [0, 100].
func (p *PID) SetLimits(lo, hi float64) {
	p.Lo = lo
	p.Hi = hi
}

func (p *PID) Drive(snap core.Snapshot, q *core.IntentQueue) {
	err := p.Target - snap.Obs(p.Observable)

	if p.first {
		p.prevErr = err
		p.prevT = snap.Time
		p.first = false
		q.Push(core.SetKnob{Name: p.Knob, Value: p.clamp(p.Kp * err)})
		return
	}

	dt := snap.Time - p.prevT
	if dt <= 0 {
		q.Push(core.SetKnob{Name: p.Knob, Value: p.clamp(p.Kp * err)})
		return
	}

	derivative := (err - p.prevErr) / dt
	u := p.Kp*err + p.Ki*(p.integral+err*dt) + p.Kd*derivative

	// Anti-windup: accumulate only while the output is inside the limits.
	if u > p.Lo && u < p.Hi {
		p.integral += err * dt
	}

	p.prevErr = err
	p.prevT = snap.Time

	q.Push(core.SetKnob{Name: p.Knob, Value: p.clamp(u)})
}

func (p *PID) clamp(u float64) float64 {
	if u < p.Lo {
		return p.Lo
	}
	if u > p.Hi {
		return p.Hi
	}
	return u
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":     p.Kp,
		"Ki":     p.Ki,
		"Kd":     p.Kd,
		"Target": p.Target,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "Target":
		p.Target = value
	}
}
