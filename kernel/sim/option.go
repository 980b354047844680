package sim

// Option configures a simulated process.
type Option func(*Process)

// WithCSpaceSize bounds the number of slots in the process's capability
// space.  If n < 2, a default of 4096 is used.
func WithCSpaceSize(n int) Option {
	if n < 2 {
		n = 4096
	}

	return func(p *Process) {
		p.size = n
	}
}

func withDefault(opt []Option) []Option {
	return append([]Option{
		WithCSpaceSize(0),
	}, opt...)
}
