package gridslice

// ProgressFunc is called with the overall progress of a run, 0 to 100.
type ProgressFunc func(percent int)

// Progress weights of the two phases.
const (
	generateWeight = 50
	packStart      = 60
	packWeight     = 0.4
)

// monotonic forwards progress, dropping any value below the last one.
type monotonic struct {
	fn   ProgressFunc
	last int
}

func (m *monotonic) report(p int) {
	if p < 0 {
		p = 0
	} else if p > 100 {
		p = 100
	}
	if p < m.last {
		return
	}
	m.last = p
	if m.fn != nil {
		m.fn(p)
	}
}
