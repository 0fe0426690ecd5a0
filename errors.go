package coalescingloader

import "errors"

// ErrGoexit is returned to the waiters of a fetch that called runtime.Goexit.
var ErrGoexit = errors.New("runtime.Goexit is called in fetch function")
