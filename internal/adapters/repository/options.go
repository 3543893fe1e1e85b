package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithSeed loads s into the store on construction.
func WithSeed(s *Seed) Option {
	return func(m *MemoryStore) {
		m.seed = s
	}
}
