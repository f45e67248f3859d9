package weighting

import (
	"errors"
	"math"
	"testing"

	"github.com/farcloser/lufsmeter/internal/biquad"
	"github.com/farcloser/lufsmeter/internal/types"
)

const testRate = 44100.0

func TestDefaultChannelGains(t *testing.T) {
	gains := DefaultChannelGains()

	if gains.For(types.Left) != 0.3 {
		t.Errorf("left gain: got %v, want 0.3", gains.For(types.Left))
	}

	if gains.For(types.Right) != 1.0 {
		t.Errorf("right gain: got %v, want 1.0", gains.For(types.Right))
	}
}

func TestDesignRejectsOutOfRange(t *testing.T) {
	if _, err := HighShelf(30000, 4, testRate); !errors.Is(err, ErrInvalidDesign) {
		t.Errorf("shelf above nyquist: got %v", err)
	}

	if _, err := HighPass(40, 0); !errors.Is(err, ErrInvalidDesign) {
		t.Errorf("zero sample rate: got %v", err)
	}

	if _, err := New(Design{ShelfFrequency: 1650, ShelfGainDB: 4, HighPassFrequency: -1}, testRate, 1); err == nil {
		t.Error("expected error for negative cutoff")
	}
}

func TestHighPassNumerator(t *testing.T) {
	coef, err := HighPass(40, testRate)
	if err != nil {
		t.Fatalf("HighPass: %v", err)
	}

	if coef[1] != -2 || coef[2] != 1 {
		t.Errorf("normalized numerator: got b1=%v b2=%v, want -2 and 1", coef[1], coef[2])
	}
}

func TestResponseShape(t *testing.T) {
	filter, err := New(DefaultDesign(), testRate, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	points := filter.Response(8192)

	if high := GainAt(points, 15000); math.Abs(high.GainDB-DefaultShelfGainDB) > 0.5 {
		t.Errorf("shelf plateau at %.0f Hz: got %.2f dB, want about %.1f dB", high.Frequency, high.GainDB, DefaultShelfGainDB)
	}

	if low := GainAt(points, 20); low.GainDB > -6 {
		t.Errorf("high pass at %.0f Hz: got %.2f dB, want below -6 dB", low.Frequency, low.GainDB)
	}

	if mid := GainAt(points, 500); mid.GainDB < -0.5 || mid.GainDB > 1.5 {
		t.Errorf("passband at %.0f Hz: got %.2f dB", mid.Frequency, mid.GainDB)
	}
}

func TestResponseIncludesChannelGain(t *testing.T) {
	left, _ := New(DefaultDesign(), testRate, DefaultChannelGains().Left)
	right, _ := New(DefaultDesign(), testRate, DefaultChannelGains().Right)

	l := GainAt(left.Response(4096), 5000)
	r := GainAt(right.Response(4096), 5000)

	want := 20 * math.Log10(0.3)
	if diff := l.GainDB - r.GainDB; math.Abs(diff-want) > 1e-6 {
		t.Errorf("left/right difference: got %.4f dB, want %.4f dB", diff, want)
	}
}

func TestResponseLeavesStateAlone(t *testing.T) {
	filter, _ := New(DefaultDesign(), testRate, 1)

	for i := range 100 {
		filter.Process(math.Sin(float64(i)))
	}

	next := filter.Process(0.5)

	clone, _ := New(DefaultDesign(), testRate, 1)
	for i := range 100 {
		clone.Process(math.Sin(float64(i)))
	}

	clone.Response(1024)

	if got := clone.Process(0.5); got != next {
		t.Errorf("Response disturbed filter state: got %v, want %v", got, next)
	}
}

func TestProcessMatchesStagesInSeries(t *testing.T) {
	filter, _ := New(DefaultDesign(), testRate, 0.3)

	shelfCoef, _ := HighShelf(DefaultShelfFrequency, DefaultShelfGainDB, testRate)
	passCoef, _ := HighPass(DefaultHighPassFrequency, testRate)
	shelf, _ := biquad.New(shelfCoef)
	pass, _ := biquad.New(passCoef)

	for i := range 1000 {
		x := math.Sin(2 * math.Pi * 440 * float64(i) / testRate)
		want := pass.Process(shelf.Process(x)) * 0.3

		if got := filter.Process(x); got != want {
			t.Fatalf("sample %d: got %v, want %v", i, got, want)
		}
	}
}

func TestSetCoefficientsPerStage(t *testing.T) {
	filter, _ := New(DefaultDesign(), testRate, 1)

	if err := filter.SetCoefficients(StageShelf, biquad.Identity()); err != nil {
		t.Fatalf("SetCoefficients: %v", err)
	}

	if err := filter.SetCoefficients(StageHighPass, biquad.Identity()); err != nil {
		t.Fatalf("SetCoefficients: %v", err)
	}

	for _, x := range []float64{0.1, -0.4, 0.9} {
		if got := filter.Process(x); got != x {
			t.Errorf("identity stages: got %v, want %v", got, x)
		}
	}

	if err := filter.SetCoefficients(StageShelf, nil); !errors.Is(err, biquad.ErrInvalidCoefficients) {
		t.Errorf("nil coefficients: got %v", err)
	}

	if err := filter.SetCoefficients(Stage(7), biquad.Identity()); err == nil {
		t.Error("expected error for unknown stage")
	}
}
