package gait

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-gait/gait/detect"
	"github.com/cwbudde/algo-gait/internal/testutil"
)

const fs = 1000.0

// syntheticEMG builds a walking-like raw channel: a 150 Hz carrier
// amplitude-modulated by ten Gaussian bursts one second apart, plus
// deterministic broadband noise.
func syntheticEMG() (t, x []float64) {
	times := testutil.EvenBurstTimes(0.5, 1.0, 10)
	train := testutil.GaussianBurstTrain(fs, 10, times, 0.1, 1.0, 0.05)

	x = make([]float64, len(train))
	for i := range x {
		x[i] = train[i] * math.Sin(2*math.Pi*150*float64(i)/fs)
	}

	testutil.AddNoise(x, 42, 0.02)

	return testutil.TimeVector(fs, len(x)), x
}

func TestAnalyze_BurstTrainEndToEnd(t *testing.T) {
	tv, x := syntheticEMG()

	rep, err := Analyze(tv, x, fs, DefaultConfig())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(rep.Envelope) != len(x) {
		t.Fatalf("envelope length: got %d, want %d", len(rep.Envelope), len(x))
	}

	n := len(rep.Detection.Events)
	if n < 9 || n > 11 {
		t.Fatalf("events: got %d, want 9-11", n)
	}

	if math.Abs(rep.Detection.MedianIntervalSec-1.0) > 0.05 {
		t.Errorf("median interval: got %g s, want ~1.0 s", rep.Detection.MedianIntervalSec)
	}

	if len(rep.Grid) != 501 || rep.Grid[0] != 0 || rep.Grid[500] != 100 {
		t.Errorf("grid: got %d points [%g, %g]", len(rep.Grid), rep.Grid[0], rep.Grid[len(rep.Grid)-1])
	}

	if len(rep.Cycles) != n-1 {
		t.Errorf("cycles: got %d, want %d", len(rep.Cycles), n-1)
	}

	if len(rep.Mean) != 501 || len(rep.SD) != 501 {
		t.Errorf("aggregate curves: got %d / %d points, want 501", len(rep.Mean), len(rep.SD))
	}

	testutil.RequireFinite(t, rep.Mean)

	// Percent-peak invariant: the maximum within the retained event span is
	// exactly 100.
	e0, eN := rep.Detection.Events[0], rep.Detection.Events[n-1]

	max := math.Inf(-1)
	for _, v := range rep.EnvelopePct[e0:eN] {
		if v > max {
			max = v
		}
	}

	if math.Abs(max-100) > 1e-9 {
		t.Errorf("in-span percent peak: got %g, want 100", max)
	}

	if len(rep.EventTimesSec) != n {
		t.Fatalf("event times: got %d, want %d", len(rep.EventTimesSec), n)
	}

	for i, e := range rep.Detection.Events {
		if rep.EventTimesSec[i] != float64(e)/fs {
			t.Fatalf("event time %d does not match its index", i)
		}
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	tv, x := syntheticEMG()

	a, err := Analyze(tv, x, fs, DefaultConfig())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	b, err := Analyze(tv, x, fs, DefaultConfig())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(a.Detection.Events) != len(b.Detection.Events) {
		t.Fatal("event counts differ between identical runs")
	}

	for i := range a.Detection.Events {
		if a.Detection.Events[i] != b.Detection.Events[i] {
			t.Fatalf("event %d differs between identical runs", i)
		}
	}

	for i := range a.Mean {
		if a.Mean[i] != b.Mean[i] && !(math.IsNaN(a.Mean[i]) && math.IsNaN(b.Mean[i])) {
			t.Fatalf("mean curve differs at point %d", i)
		}
	}
}

func TestAnalyze_TimeVectorValidation(t *testing.T) {
	_, x := syntheticEMG()

	short := testutil.TimeVector(fs, len(x)-1)
	if _, err := Analyze(short, x, fs, DefaultConfig()); !errors.Is(err, ErrConfig) {
		t.Errorf("mismatched lengths: got %v, want ErrConfig", err)
	}

	bad := testutil.TimeVector(fs, len(x))
	bad[100] = bad[99]

	if _, err := Analyze(bad, x, fs, DefaultConfig()); !errors.Is(err, ErrConfig) {
		t.Errorf("non-increasing time vector: got %v, want ErrConfig", err)
	}
}

func TestAnalyze_TooShort(t *testing.T) {
	x := testutil.DeterministicSine(150, fs, 1.0, int(0.5*fs))

	_, err := Analyze(nil, x, fs, DefaultConfig())
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("got %v, want ErrInsufficientData", err)
	}
}

func TestAnalyze_TooManyDropouts(t *testing.T) {
	_, x := syntheticEMG()

	// Blank out 10% of the recording.
	for i := 0; i < len(x)/10; i++ {
		x[i] = math.NaN()
	}

	_, err := Analyze(nil, x, fs, DefaultConfig())
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("got %v, want ErrInsufficientData", err)
	}
}

func TestAnalyze_PatchesIsolatedDropouts(t *testing.T) {
	_, x := syntheticEMG()

	// A handful of scattered dropouts stays under the gate.
	for i := 100; i < len(x); i += 997 {
		x[i] = math.NaN()
	}

	rep, err := Analyze(nil, x, fs, DefaultConfig())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	testutil.RequireFinite(t, rep.Envelope)
}

func TestAnalyzeWithEvents_ConfirmsDetection(t *testing.T) {
	tv, x := syntheticEMG()

	base, err := Analyze(tv, x, fs, DefaultConfig())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// External clock leads by exactly 0.2 s.
	external := make([]float64, len(base.EventTimesSec))
	for i, et := range base.EventTimesSec {
		external[i] = et + 0.2
	}

	rep, err := AnalyzeWithEvents(tv, x, fs, external, DefaultConfig())
	if err != nil {
		t.Fatalf("AnalyzeWithEvents: %v", err)
	}

	if !rep.Reconciled {
		t.Fatal("expected reconciliation to succeed")
	}

	if math.Abs(rep.ShiftSec-0.2) > 0.01 {
		t.Errorf("shift: got %g s, want 0.2 +/- 10 ms", rep.ShiftSec)
	}

	if rep.Detection.Mode != detect.ModeExternal {
		t.Errorf("mode: got %v, want external", rep.Detection.Mode)
	}

	if len(rep.Detection.Events) != len(base.Detection.Events) {
		t.Errorf("confirmed events: got %d, want %d",
			len(rep.Detection.Events), len(base.Detection.Events))
	}
}

func TestAnalyzeWithEvents_SkippedKeepsDetector(t *testing.T) {
	tv, x := syntheticEMG()

	// External events nowhere near the recording.
	rep, err := AnalyzeWithEvents(tv, x, fs, []float64{100, 200}, DefaultConfig())
	if err != nil {
		t.Fatalf("AnalyzeWithEvents: %v", err)
	}

	if rep.Reconciled {
		t.Fatal("reconciliation should have been skipped")
	}

	if rep.SyncNote == "" {
		t.Error("skip reason should be recorded")
	}

	if rep.Detection.Mode != detect.ModeThreshold {
		t.Errorf("mode: got %v, want threshold", rep.Detection.Mode)
	}

	base, err := Analyze(tv, x, fs, DefaultConfig())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(rep.Detection.Events) != len(base.Detection.Events) {
		t.Errorf("skipped reconciliation changed the event set: %d vs %d",
			len(rep.Detection.Events), len(base.Detection.Events))
	}
}

func TestAnalyzeWithReference_CrossChannel(t *testing.T) {
	tv, x := syntheticEMG()

	base, err := Analyze(tv, x, fs, DefaultConfig())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	rep, err := AnalyzeWithReference(tv, x, fs, base.Detection.Events, DefaultConfig())
	if err != nil {
		t.Fatalf("AnalyzeWithReference: %v", err)
	}

	if rep.Detection.Mode != detect.ModeExternal {
		t.Errorf("mode: got %v, want external", rep.Detection.Mode)
	}

	if len(rep.Cycles) != len(base.Detection.Events)-1 {
		t.Errorf("cycles: got %d, want %d", len(rep.Cycles), len(base.Detection.Events)-1)
	}
}

func TestAnalyzeWithReference_InvalidEvents(t *testing.T) {
	_, x := syntheticEMG()

	if _, err := AnalyzeWithReference(nil, x, fs, []int{500}, DefaultConfig()); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("single event: got %v, want ErrInsufficientData", err)
	}

	if _, err := AnalyzeWithReference(nil, x, fs, []int{2000, 1000}, DefaultConfig()); !errors.Is(err, ErrConfig) {
		t.Errorf("descending events: got %v, want ErrConfig", err)
	}

	if _, err := AnalyzeWithReference(nil, x, fs, []int{-5, 1000}, DefaultConfig()); !errors.Is(err, ErrConfig) {
		t.Errorf("negative event: got %v, want ErrConfig", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative highpass", func(c *Config) { c.HighpassHz = -1 }},
		{"negative lowpass", func(c *Config) { c.LowpassHz = -1 }},
		{"zero rms window", func(c *Config) { c.RMSWindowMs = 0 }},
		{"tiny cycle grid", func(c *Config) { c.CyclePoints = 1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)

			if err := cfg.Validate(); !errors.Is(err, ErrConfig) {
				t.Fatalf("got %v, want ErrConfig", err)
			}
		})
	}

	// Detector-side problems surface through the same Validate call.
	cfg := DefaultConfig()
	cfg.KStep = 0

	if err := cfg.Validate(); !errors.Is(err, detect.ErrConfig) {
		t.Fatalf("got %v, want detect.ErrConfig", err)
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate, got %v", err)
	}
}

func TestAnalyze_InvalidSampleRate(t *testing.T) {
	_, x := syntheticEMG()

	if _, err := Analyze(nil, x, 0, DefaultConfig()); !errors.Is(err, ErrConfig) {
		t.Fatalf("got %v, want ErrConfig", err)
	}
}
