package labs_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arvi-k/physlab/internal/core"
	"github.com/arvi-k/physlab/internal/labs"
)

// End-to-end arcs through the fusion lab: the ignition climb and the burnout.
// Both run on the default seed; the engine is deterministic, so these are
// exact replays, not flaky physics.

const tickRate = 60.0

var _ = Describe("fusion ignition", func() {
	var sess *core.Session

	BeforeEach(func() {
		lab, err := labs.Get("fusion")
		Expect(err).NotTo(HaveOccurred())
		sess, err = lab.NewSession(lab.Seed)
		Expect(err).NotTo(HaveOccurred())
	})

	It("starts with a full plasma at default containment", func() {
		snap := sess.Snapshot()
		Expect(snap.Phase).To(Equal("heating"))
		Expect(snap.Count(core.KindPrimary)).To(Equal(100))
		Expect(snap.Containment.Strength).To(Equal(50.0))
		Expect(snap.Obs("fuel")).To(Equal(100.0))
	})

	It("reaches the reacting band within 500 ticks and never breaches the temperature ceiling", func() {
		reachedAt := 0
		maxTemp := 0.0
		for tick := 1; tick <= 500; tick++ {
			sess.Step(1 / tickRate)
			snap := sess.Snapshot()

			if temp := snap.Obs("temperature"); temp > maxTemp {
				maxTemp = temp
			}
			if reachedAt == 0 && snap.Phase == "reacting" {
				reachedAt = tick
			}
		}

		Expect(reachedAt).To(BeNumerically(">", 0), "default heater never drove the plasma past stabilizing")
		Expect(reachedAt).To(BeNumerically("<", 500))
		Expect(maxTemp).To(BeNumerically("<=", 1000))
	})

	It("announces each climb through a phase event", func() {
		var names []string
		for tick := 0; tick < 500; tick++ {
			sess.Step(1 / tickRate)
			for _, e := range sess.Snapshot().EventsOf(core.EventPhase) {
				names = append(names, e.Name)
			}
		}
		Expect(names).To(ContainElement("stabilizing"))
		Expect(names).To(ContainElement("reacting"))
	})
})

var _ = Describe("fusion burnout", func() {
	It("burns a full tank dry and ends terminal in exhausted", func() {
		lab, err := labs.Get("fusion")
		Expect(err).NotTo(HaveOccurred())
		sess, err := lab.NewSession(lab.Seed)
		Expect(err).NotTo(HaveOccurred())

		// Full throttle, no refill: ignite, then drain 100 units at 2/s.
		Expect(sess.SetKnob("heater", 100)).To(Succeed())
		Expect(sess.SetKnob("injection", 0)).To(Succeed())

		result, err := sess.Run(context.Background(), core.RunConfig{
			Rate:           tickRate,
			Ticks:          int(80 * tickRate),
			SampleEvery:    10,
			StopAtTerminal: true,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Final.Terminal).To(BeTrue())
		Expect(result.Final.Phase).To(Equal("exhausted"))

		fuel := result.Final.Obs("fuel")
		Expect(fuel).To(BeNumerically(">=", 0), "the floor clamp must hold")
		Expect(fuel).To(BeNumerically("~", 0.0, 1e-9), "the tank must land on empty")

		// Ignition takes a few seconds and the drain exactly fifty; the run
		// must not outlive the first minute.
		Expect(result.SimTime).To(BeNumerically(">", 50))
		Expect(result.SimTime).To(BeNumerically("<", 60))

		var seen []string
		for _, e := range result.Events {
			if e.Type == core.EventPhase {
				seen = append(seen, e.Name)
			}
		}
		Expect(seen).To(Equal([]string{"stabilizing", "reacting", "sustained", "exhausted"}),
			"the climb must pass every band exactly once")

		fuelSeries := result.Series.Column("fuel")
		Expect(fuelSeries).NotTo(BeNil())
		for i := 1; i < len(fuelSeries); i++ {
			Expect(fuelSeries[i]).To(BeNumerically("<=", fuelSeries[i-1]),
				"fuel must never replenish with injection at zero")
		}
	})

	It("keeps burning while the sustained band holds", func() {
		lab, err := labs.Get("fusion")
		Expect(err).NotTo(HaveOccurred())
		sess, err := lab.NewSession(lab.Seed)
		Expect(err).NotTo(HaveOccurred())
		Expect(sess.SetKnob("heater", 100)).To(Succeed())

		// Ten seconds is enough to ignite on full heat.
		for tick := 0; tick < 600; tick++ {
			sess.Step(1 / tickRate)
		}
		snap := sess.Snapshot()
		Expect(snap.Phase).To(Equal("sustained"))

		before := snap.Obs("fuel")
		for tick := 0; tick < 60; tick++ {
			sess.Step(1 / tickRate)
		}
		after := sess.Snapshot().Obs("fuel")

		// 2 units/s: one second of burn costs two units.
		Expect(before - after).To(BeNumerically("~", 2.0, 1e-9))
	})
})
