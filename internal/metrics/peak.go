package metrics

import (
	"github.com/arvi-k/physlab/internal/core"
)

type Peak struct {
	name    string
	obs     string
	max     float64
	samples int
}

func NewPeak(obs string) *Peak {
	return &Peak{
		name: "peak_" + obs,
		obs:  obs,
	}
}

func (p *Peak) Name() string { return p.name }

func (p *Peak) Observe(snap core.Snapshot) {
	v := snap.Obs(p.obs)
	if p.samples == 0 || v > p.max {
		p.max = v
	}
	p.samples++
}

func (p *Peak) Value() float64 {
	return p.max
}

func (p *Peak) Reset() {
	p.max = 0
	p.samples = 0
}

type Mean struct {
	name    string
	obs     string
	sum     float64
	samples int
}

func NewMean(obs string) *Mean {
	return &Mean{
		name: "mean_" + obs,
		obs:  obs,
	}
}

func (m *Mean) Name() string { return m.name }

func (m *Mean) Observe(snap core.Snapshot) {
	m.sum += snap.Obs(m.obs)
	m.samples++
}

func (m *Mean) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *Mean) Reset() {
	m.sum = 0
	m.samples = 0
}
