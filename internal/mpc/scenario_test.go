package mpc_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/lander/internal/cost"
	"github.com/san-kum/lander/internal/mpc"
	"github.com/san-kum/lander/internal/physics"
)

var _ = Describe("Controller", func() {
	var (
		controller *mpc.Controller
		current    physics.Pose
		target     physics.Pose
		dt         float64
	)

	BeforeEach(func() {
		rocket := physics.NewRocket()
		rocket.Mass = 30
		var err error
		controller, err = mpc.New(rocket, mpc.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		current = physics.Pose{X: 250, Y: 200, Alpha: physics.Radians(-70)}
		target = physics.Pose{X: 400, Y: 780}
		dt = 0.02
	})

	Context("descending from a tilted pose", func() {
		var tick mpc.Tick

		BeforeEach(func() {
			var err error
			tick, err = controller.Step(context.Background(), current, target, dt)
			Expect(err).NotTo(HaveOccurred())
		})

		It("keeps the first control inside its box", func() {
			Expect(tick.Control.Thrust).To(BeNumerically(">=", -600))
			Expect(tick.Control.Thrust).To(BeNumerically("<=", 0))
			Expect(math.Abs(tick.Control.Gimbal)).To(BeNumerically("<=", physics.Radians(60)))
		})

		It("keeps every planned control inside its box", func() {
			Expect(tick.Plan).To(HaveLen(mpc.DefaultConfig().Horizon.Steps))
			for _, u := range tick.Plan {
				Expect(u.Thrust).To(BeNumerically(">=", -600))
				Expect(u.Thrust).To(BeNumerically("<=", 0))
				Expect(math.Abs(u.Gimbal)).To(BeNumerically("<=", physics.Radians(60)))
			}
		})

		It("predicts a pose closer to the target than the current one", func() {
			w, err := cost.DefaultTuning().Weights(current, target)
			Expect(err).NotTo(HaveOccurred())

			before := physics.WeightedDistance(current, target, w.QF)
			after := physics.WeightedDistance(tick.Predicted, target, w.QF)
			Expect(after).To(BeNumerically("<", before))
		})

		It("turns the nose toward upright at full thrust", func() {
			Expect(tick.Control.Gimbal).To(BeNumerically("<", 0))
			Expect(tick.Control.Thrust).To(BeNumerically("<", -300))
			Expect(tick.Predicted.AlphaDot).To(BeNumerically(">", 0))
		})

		It("does not modify the caller's pose", func() {
			Expect(current).To(Equal(physics.Pose{X: 250, Y: 200, Alpha: physics.Radians(-70)}))
		})
	})

	Context("building twice from the same inputs", func() {
		It("solves to identical results", func() {
			first, err := controller.Build(current, target, dt)
			Expect(err).NotTo(HaveOccurred())
			second, err := controller.Build(current, target, dt)
			Expect(err).NotTo(HaveOccurred())

			a, err := controller.Solve(context.Background(), first)
			Expect(err).NotTo(HaveOccurred())
			b, err := controller.Solve(context.Background(), second)
			Expect(err).NotTo(HaveOccurred())

			Expect(a.Control).To(Equal(b.Control))
			Expect(a.Predicted).To(Equal(b.Predicted))
			Expect(a.Plan).To(Equal(b.Plan))
		})

		It("is unaffected by an unrelated solve in between", func() {
			h, err := controller.Build(current, target, dt)
			Expect(err).NotTo(HaveOccurred())
			a, err := controller.Solve(context.Background(), h)
			Expect(err).NotTo(HaveOccurred())

			_, _ = controller.Step(context.Background(), physics.Pose{X: 10, Y: 700, AlphaDot: 0.5}, target, dt)

			b, err := controller.Solve(context.Background(), h)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Control).To(Equal(a.Control))
		})
	})
})
