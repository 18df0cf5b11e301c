package domain

import (
	"slices"
	"time"
)

// Report summarizes an owner's network and its firing history
type Report struct {
	Neurons     []NeuronRecord `json:"neurons"`
	Connections []Connection   `json:"connections"`

	// FiringActivity holds firings per second, indexed by seconds since the
	// first recorded firing. Seconds without firings are 0.
	FiringActivity []int      `json:"firing_activity"`
	TotalFirings   int        `json:"total_firings"`
	AvgFiringRate  float64    `json:"avg_firing_rate"`
	Duration       float64    `json:"duration"`
	FirstFiring    *time.Time `json:"first_firing,omitempty"`
	LastFiring     *time.Time `json:"last_firing,omitempty"`
}

// BuildReport bins firing events into one-second buckets.
// The average rate is total firings over the span between the first and last
// bucket, and 0 when every event falls in the same second.
func BuildReport(neurons []NeuronRecord, conns []Connection, events []FiringEvent) *Report {
	r := &Report{
		Neurons:        neurons,
		Connections:    conns,
		FiringActivity: []int{},
	}
	if r.Neurons == nil {
		r.Neurons = []NeuronRecord{}
	}
	if r.Connections == nil {
		r.Connections = []Connection{}
	}
	if len(events) == 0 {
		return r
	}

	bins := make([]time.Time, len(events))
	for i, e := range events {
		bins[i] = e.FiredAt.UTC().Truncate(time.Second)
	}
	slices.SortFunc(bins, func(a, b time.Time) int { return a.Compare(b) })

	first, last := bins[0], bins[len(bins)-1]
	span := int(last.Sub(first) / time.Second)
	r.FiringActivity = make([]int, span+1)
	for _, b := range bins {
		r.FiringActivity[int(b.Sub(first)/time.Second)]++
	}

	r.TotalFirings = len(events)
	r.Duration = last.Sub(first).Seconds()
	if r.Duration > 0 {
		r.AvgFiringRate = float64(r.TotalFirings) / r.Duration
	}
	r.FirstFiring = &first
	r.LastFiring = &last
	return r
}
