package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithRetention caps how many reports are kept. The oldest report is
// evicted first.
func WithRetention(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.retention = n
		}
	}
}
