package stats

import (
	"math/rand"
	"sort"

	"github.com/skylift/rotoreval/internal/numeric"
)

// Reservoir keeps a bounded uniform sample of a stream for quantile and
// CDF queries without unbounded memory.
type Reservoir struct {
	cap    int
	rng    *rand.Rand
	data   []float64
	seen   uint64
	sorted bool
}

// NewReservoir returns a reservoir holding at most cap samples, seeded
// deterministically.
func NewReservoir(cap int, seed uint64) *Reservoir {
	if cap < 1 {
		cap = 1
	}
	return &Reservoir{
		cap:  cap,
		rng:  rand.New(rand.NewSource(int64(seed))),
		data: make([]float64, 0, cap),
	}
}

// Reset reseeds and clears the reservoir.
func (r *Reservoir) Reset(seed uint64) {
	r.rng = rand.New(rand.NewSource(int64(seed)))
	r.data = r.data[:0]
	r.seen = 0
	r.sorted = false
}

// Push offers one sample; non-finite samples are skipped.
func (r *Reservoir) Push(x float64) {
	if !numeric.IsFinite(x) {
		return
	}
	r.seen++

	if len(r.data) < r.cap {
		r.data = append(r.data, x)
		r.sorted = false
		return
	}

	// Replacement with probability cap/seen.
	j := uint64(r.rng.Int63n(int64(r.seen)))
	if j < uint64(r.cap) {
		r.data[j] = x
		r.sorted = false
	}
}

// Seen returns the stream length offered so far.
func (r *Reservoir) Seen() uint64 { return r.seen }

// Size returns the retained sample count.
func (r *Reservoir) Size() int { return len(r.data) }

// Cap returns the retention capacity.
func (r *Reservoir) Cap() int { return r.cap }

func (r *Reservoir) sortIfNeeded() {
	if !r.sorted {
		sort.Float64s(r.data)
		r.sorted = true
	}
}

// CDF returns P(X <= x) over the retained sample.
func (r *Reservoir) CDF(x float64) float64 {
	if len(r.data) == 0 {
		return 0
	}
	r.sortIfNeeded()
	k := sort.SearchFloat64s(r.data, x)
	for k < len(r.data) && r.data[k] == x {
		k++
	}
	return numeric.Clamp(float64(k)/float64(len(r.data)), 0, 1)
}

// Quantile returns the q-quantile with linear interpolation between
// adjacent order statistics.
func (r *Reservoir) Quantile(q float64) float64 {
	if len(r.data) == 0 {
		return 0
	}
	r.sortIfNeeded()
	q = numeric.Clamp(q, 0, 1)
	idx := q * float64(len(r.data)-1)
	i0 := int(idx)
	i1 := i0 + 1
	if i1 > len(r.data)-1 {
		i1 = len(r.data) - 1
	}
	t := idx - float64(i0)
	return r.data[i0] + (r.data[i1]-r.data[i0])*t
}

// MetricStats bundles running moments with a reservoir for one metric.
type MetricStats struct {
	Moments   Running
	Reservoir *Reservoir
}

// NewMetricStats returns an empty bundle.
func NewMetricStats(cap int, seed uint64) *MetricStats {
	return &MetricStats{Moments: NewRunning(), Reservoir: NewReservoir(cap, seed)}
}

// Push feeds both accumulators.
func (m *MetricStats) Push(x float64) {
	m.Moments.Push(x)
	m.Reservoir.Push(x)
}
