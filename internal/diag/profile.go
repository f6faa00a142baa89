package diag

import (
	"io"
	"time"

	"github.com/google/pprof/profile"
)

// Sampler is implemented by components (the buddy allocator, the slab
// cache set, the scheduler) that can describe their current occupancy as
// named buckets of counts, for inclusion in a diagnostic profile.
type Sampler interface {
	// Name identifies the component, used as the pprof sample type.
	Name() string
	// Samples returns one (label, count) pair per bucket -- e.g. one per
	// buddy order, or one per slab size-class.
	Samples() map[string]int64
}

// Capture snapshots the given samplers into a pprof profile so a wedged
// kernel's allocator/scheduler state can be inspected with
// `go tool pprof`, the hosted stand-in for Biscuit's hardware panic dump.
func Capture(samplers ...Sampler) *profile.Profile {
	p := &profile.Profile{
		TimeNanos:     time.Now().UnixNano(),
		DurationNanos: 0,
	}

	fn := &profile.Function{ID: 1, Name: "snapshot", SystemName: "snapshot"}
	loc := &profile.Location{ID: 1, Line: []profile.Line{{Function: fn, Line: 1}}}
	p.Function = append(p.Function, fn)
	p.Location = append(p.Location, loc)

	for i, s := range samplers {
		st := &profile.ValueType{Type: s.Name(), Unit: "count"}
		p.SampleType = append(p.SampleType, st)

		for label, count := range s.Samples() {
			p.Sample = append(p.Sample, &profile.Sample{
				Location: []*profile.Location{loc},
				Value:    oneOfN(len(samplers), i, count),
				Label:    map[string][]string{"bucket": {label}},
			})
		}
	}
	return p
}

// oneOfN builds a Value vector with count placed at index i and zero
// elsewhere, so each sampler's counts land in its own pprof sample type
// column.
func oneOfN(n, i int, count int64) []int64 {
	v := make([]int64, n)
	v[i] = count
	return v
}

// WriteTo serializes the profile in pprof's gzip'd protobuf wire format.
func WriteTo(w io.Writer, p *profile.Profile) error {
	return p.Write(w)
}
