package domain

import (
	"slices"
	"testing"
	"time"
)

func TestBuildReport(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	at := func(ms int) FiringEvent {
		return FiringEvent{NeuronID: "n", FiredAt: base.Add(time.Duration(ms) * time.Millisecond)}
	}

	t.Run("no events", func(t *testing.T) {
		r := BuildReport(nil, nil, nil)
		if r.TotalFirings != 0 || r.AvgFiringRate != 0 || r.Duration != 0 {
			t.Errorf("expected zero summary, got %+v", r)
		}
		if r.Neurons == nil || r.Connections == nil || r.FiringActivity == nil {
			t.Error("expected empty slices, not nil")
		}
		if r.FirstFiring != nil || r.LastFiring != nil {
			t.Error("expected no bounds")
		}
	})

	t.Run("single second", func(t *testing.T) {
		r := BuildReport(nil, nil, []FiringEvent{at(100), at(200), at(900)})
		if !slices.Equal(r.FiringActivity, []int{3}) {
			t.Errorf("expected [3], got %v", r.FiringActivity)
		}
		if r.Duration != 0 || r.AvgFiringRate != 0 {
			t.Errorf("expected zero duration and rate, got %v / %v", r.Duration, r.AvgFiringRate)
		}
	})

	t.Run("gaps are zero filled", func(t *testing.T) {
		events := []FiringEvent{at(3500), at(0), at(400), at(3100), at(1200)}
		r := BuildReport(nil, nil, events)

		if !slices.Equal(r.FiringActivity, []int{2, 1, 0, 2}) {
			t.Errorf("expected [2 1 0 2], got %v", r.FiringActivity)
		}
		if r.TotalFirings != 5 {
			t.Errorf("expected 5 firings, got %d", r.TotalFirings)
		}
		if r.Duration != 3 {
			t.Errorf("expected duration 3, got %v", r.Duration)
		}
		if want := 5.0 / 3.0; r.AvgFiringRate != want {
			t.Errorf("expected rate %v, got %v", want, r.AvgFiringRate)
		}
		if !r.FirstFiring.Equal(base) || !r.LastFiring.Equal(base.Add(3*time.Second)) {
			t.Errorf("unexpected bounds %v .. %v", r.FirstFiring, r.LastFiring)
		}
	})

	t.Run("zones are normalized", func(t *testing.T) {
		zone := time.FixedZone("plus2", 2*60*60)
		events := []FiringEvent{
			{FiredAt: base},
			{FiredAt: base.Add(time.Second).In(zone)},
		}
		r := BuildReport(nil, nil, events)
		if !slices.Equal(r.FiringActivity, []int{1, 1}) {
			t.Errorf("expected [1 1], got %v", r.FiringActivity)
		}
	})

	t.Run("network is carried through", func(t *testing.T) {
		neurons := []NeuronRecord{{ID: "a", Threshold: 0.5}}
		conns := []Connection{{FromID: "a", ToID: "a"}}
		r := BuildReport(neurons, conns, nil)
		if len(r.Neurons) != 1 || len(r.Connections) != 1 {
			t.Errorf("unexpected network %+v", r)
		}
	})
}
