package cost

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/physics"
	"github.com/san-kum/lander/internal/scalar"
)

var target = physics.Pose{X: 400, Y: 780}

func mustWeights(t *testing.T, tu Tuning, current physics.Pose) Weights {
	t.Helper()
	w, err := tu.Weights(current, target)
	if err != nil {
		t.Fatalf("Weights(%v): %v", current, err)
	}
	return w
}

func TestStageCostZeroAtTarget(t *testing.T) {
	w := mustWeights(t, DefaultTuning(), physics.Pose{X: 250, Y: 200})
	z := target.Vector()
	x := target.Vector()
	u := []float64{0, 0}
	if got := Stage[float64](scalar.Real{}, w, x[:], z, u); got != 0 {
		t.Errorf("stage cost at target with zero control = %v, want 0", got)
	}
	if got := Terminal[float64](scalar.Real{}, w, x[:], z, u); got != 0 {
		t.Errorf("terminal cost at target with zero control = %v, want 0", got)
	}
}

func TestStageCostNonNegative(t *testing.T) {
	w := mustWeights(t, DefaultTuning(), physics.Pose{X: 250, Y: 200, Alpha: -1.2, AlphaDot: 0.3})
	z := target.Vector()
	states := []physics.Pose{
		{X: 250, Y: 200, Alpha: -1.2},
		{X: -1e3, Y: 1e4, Alpha: 3, XDot: -5, YDot: 40, AlphaDot: -2},
		target,
	}
	controls := [][]float64{{0, 0}, {-600, 1}, {-12, -1}}
	for _, s := range states {
		x := s.Vector()
		for _, u := range controls {
			if c := Stage[float64](scalar.Real{}, w, x[:], z, u); c < 0 {
				t.Errorf("stage cost %v < 0 at %v, %v", c, s, u)
			}
			if c := Terminal[float64](scalar.Real{}, w, x[:], z, u); c < 0 {
				t.Errorf("terminal cost %v < 0 at %v, %v", c, s, u)
			}
		}
	}
}

func TestCostPositiveAwayFromTarget(t *testing.T) {
	w := mustWeights(t, DefaultTuning(), physics.Pose{X: 250, Y: 200})
	z := target.Vector()
	at := target.Vector()
	off := physics.Pose{X: 401, Y: 780}.Vector()

	cases := []struct {
		name string
		x    []float64
		u    []float64
	}{
		{"off target", off[:], []float64{0, 0}},
		{"thrust at target", at[:], []float64{-1, 0}},
		{"gimbal at target", at[:], []float64{0, 0.1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if c := Stage[float64](scalar.Real{}, w, tc.x, z, tc.u); c <= 0 {
				t.Errorf("stage cost = %v, want > 0", c)
			}
			if c := Terminal[float64](scalar.Real{}, w, tc.x, z, tc.u); c <= 0 {
				t.Errorf("terminal cost = %v, want > 0", c)
			}
		})
	}
}

func TestStageCostAgreesWithManualSum(t *testing.T) {
	tu := DefaultTuning()
	w := mustWeights(t, tu, physics.Pose{Y: 100})
	x := []float64{1, 2, 3, 4, 5, 6}
	var z [physics.StateDim]float64
	u := []float64{-2, 0.5}

	want := 0.0
	for _, v := range x {
		want += tu.Q * v * v
	}
	want += tu.R[0]*4 + tu.R[1]*0.25
	if got := Stage[float64](scalar.Real{}, w, x, z, u); math.Abs(got-want) > 1e-9*want {
		t.Errorf("stage = %v, want %v", got, want)
	}
}

func TestVerticalSpeedPenaltyGrowsNearTarget(t *testing.T) {
	tu := DefaultTuning()
	prev := 0.0
	for _, y := range []float64{0, 200, 500, 700, 770, 779.9} {
		w := mustWeights(t, tu, physics.Pose{Y: y})
		if w.QF[physics.IdxYDot] <= prev {
			t.Errorf("QF[y_dot] = %v at y=%v, not above %v", w.QF[physics.IdxYDot], y, prev)
		}
		prev = w.QF[physics.IdxYDot]
	}
}

func TestVerticalSpeedPenaltyFormula(t *testing.T) {
	tu := DefaultTuning()
	w := mustWeights(t, tu, physics.Pose{Y: 200})
	want := tu.DotYGain / math.Abs((200.0-780)/(780+tu.Epsilon))
	if math.Abs(w.QF[physics.IdxYDot]-want) > 1e-9*want {
		t.Errorf("QF[y_dot] = %v, want %v", w.QF[physics.IdxYDot], want)
	}
	if w.Clamped {
		t.Error("clamped flag set far from target")
	}
}

func TestVerticalSpeedPenaltyCapped(t *testing.T) {
	tu := DefaultTuning()
	w := mustWeights(t, tu, physics.Pose{Y: 780})
	limit := tu.DotYGain / tu.Epsilon
	if w.QF[physics.IdxYDot] != limit {
		t.Errorf("QF[y_dot] = %v at target height, want cap %v", w.QF[physics.IdxYDot], limit)
	}
	if !w.Clamped {
		t.Error("clamped flag not set at target height")
	}
	if math.IsInf(w.QF[physics.IdxYDot], 0) {
		t.Error("penalty is infinite")
	}
}

func TestAngularRatePenalty(t *testing.T) {
	tu := DefaultTuning()
	for _, rate := range []float64{-0.4, 0, 0.25} {
		w := mustWeights(t, tu, physics.Pose{Y: 100, AlphaDot: rate})
		if want := tu.AlphaDotGain * math.Abs(rate); w.QF[physics.IdxAlphaDot] != want {
			t.Errorf("QF[alpha_dot] = %v at rate %v, want %v", w.QF[physics.IdxAlphaDot], rate, want)
		}
	}
}

func TestFixedTerminalWeights(t *testing.T) {
	tu := DefaultTuning()
	w := mustWeights(t, tu, physics.Pose{Y: 10})
	if w.QF[physics.IdxX] != tu.XPenalty || w.QF[physics.IdxAlpha] != tu.AlphaPenalty {
		t.Errorf("QF = %v", w.QF)
	}
	if w.QF[physics.IdxY] != tu.Q || w.QF[physics.IdxXDot] != tu.Q {
		t.Errorf("QF = %v", w.QF)
	}
	if w.RF != tu.RF || w.R != tu.R {
		t.Errorf("R = %v, RF = %v", w.R, w.RF)
	}
}

func TestWeightsDomainErrors(t *testing.T) {
	tu := DefaultTuning()
	tests := []struct {
		name    string
		current physics.Pose
		target  physics.Pose
	}{
		{"degenerate target height", physics.Pose{Y: 1}, physics.Pose{Y: -tu.Epsilon}},
		{"nan state", physics.Pose{Y: math.NaN()}, target},
		{"infinite rate", physics.Pose{AlphaDot: math.Inf(1)}, target},
		{"nan target", physics.Pose{}, physics.Pose{X: math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tu.Weights(tt.current, tt.target)
			if !errors.Is(err, dynamo.ErrNumericalDomain) {
				t.Fatalf("err = %v, want ErrNumericalDomain", err)
			}
			var de *dynamo.DomainError
			if !errors.As(err, &de) {
				t.Fatalf("err %T is not a DomainError", err)
			}
		})
	}
}

func TestTuningValidate(t *testing.T) {
	if err := DefaultTuning().Validate(); err != nil {
		t.Fatalf("default tuning invalid: %v", err)
	}
	bad := DefaultTuning()
	bad.R[1] = -1
	if err := bad.Validate(); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("negative gain: err = %v", err)
	}
	bad = DefaultTuning()
	bad.Epsilon = 0
	if err := bad.Validate(); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("zero epsilon: err = %v", err)
	}
}

func TestTuningParams(t *testing.T) {
	tu := DefaultTuning()
	if err := tu.SetParam("dot_y_gain", 42); err != nil {
		t.Fatal(err)
	}
	if tu.GetParams()["dot_y_gain"] != 42 || tu.DotYGain != 42 {
		t.Errorf("dot_y_gain not applied: %+v", tu)
	}
	if err := tu.SetParam("mass", 1); err == nil {
		t.Error("unknown parameter accepted")
	}
}
