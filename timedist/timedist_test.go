package timedist

import "testing"

func TestAverageTimesReturnsMean(t *testing.T) {
	d := NewAverageTimes()
	if got := d.NextTime(12.5, 3); got != 12.5 {
		t.Fatalf("NextTime = %f, want 12.5", got)
	}
}

func TestAverageTimesRejectsNegativeMean(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for a negative mean")
		}
	}()
	NewAverageTimes().NextTime(-1, 0)
}

func TestUniformTimesStaysWithinMomentMatchedSpread(t *testing.T) {
	d := NewUniformTimes()
	mean, sd := 10.0, 1.0
	lo, hi := mean-1.7320508075688772*sd, mean+1.7320508075688772*sd
	for i := 0; i < 200; i++ {
		got := d.NextTime(mean, sd)
		if got < lo || got > hi {
			t.Fatalf("sample %f outside [%f, %f]", got, lo, hi)
		}
	}
}

func TestUniformTimesRejectsMeanBelowSpread(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic when the spread would sample below zero")
		}
	}()
	NewUniformTimes().NextTime(1, 100)
}

func TestNewPresetUniformTimesRejectsOutOfRangeNoise(t *testing.T) {
	for _, noise := range []float64{-0.1, 1.1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected a panic for noise %f", noise)
				}
			}()
			NewPresetUniformTimes(noise)
		}()
	}
}

func TestPresetUniformTimesStaysWithinNoiseBand(t *testing.T) {
	d := NewPresetUniformTimes(0.2)
	mean := 10.0
	for i := 0; i < 200; i++ {
		got := d.NextTime(mean, 0)
		if got < mean*0.8 || got > mean*1.2 {
			t.Fatalf("sample %f outside +/-20%% of %f", got, mean)
		}
	}
}
