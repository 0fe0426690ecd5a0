package mappedloader

// Option is the interface for the options of the Loader.
type Option[K any, V any, M any] interface {
	apply(*Loader[K, V, M])
}

type optionFunc[K any, V any, M any] func(*Loader[K, V, M])

func (f optionFunc[K, V, M]) apply(l *Loader[K, V, M]) {
	f(l)
}

// WithMaxGoroutines limits the number of mappings that run at the same time in LoadMany.
// The default is GOMAXPROCS.
func WithMaxGoroutines[K any, V any, M any](n int) Option[K, V, M] {
	if n <= 0 {
		panic("max goroutines must be greater than 0")
	}
	return optionFunc[K, V, M](func(l *Loader[K, V, M]) {
		l.maxGoroutines = n
	})
}
