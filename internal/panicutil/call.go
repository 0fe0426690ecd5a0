// Package panicutil runs user supplied callbacks so that a panic or runtime.Goexit inside them
// cannot leave waiters of a shared operation blocked forever.
package panicutil

import (
	"github.com/sourcegraph/conc/panics"
)

// Call runs f with a double defer sandwich.
// If f returns normally, it returns the error value returned from f.
// If f panics, it returns the recovered panic value as *panics.ErrRecovered.
// If f calls runtime.Goexit, onGoexit is called (when not nil) and the goroutine keeps exiting,
// so Call never returns to its caller.
func Call(f func() error, onGoexit func()) (err error) {
	var (
		normalReturn bool
		recovered    bool
		panicValue   panics.Recovered
	)
	defer func() {
		switch {
		case normalReturn:
			return
		case recovered:
			err = panicValue.AsError()
		default:
			if onGoexit != nil {
				onGoexit()
			}
		}
	}()
	func() {
		defer func() {
			panicValue = panics.NewRecovered(2, recover())
		}()
		err = f()
		normalReturn = true
	}()
	if !normalReturn {
		recovered = true
	}
	return
}

// Go runs f on a new goroutine through Call and reports any failure to onError.
// goexitErr is reported when f calls runtime.Goexit.
// It is meant for fire-and-forget work whose failure must not crash the process.
func Go(f func() error, goexitErr error, onError func(error)) {
	go func() {
		err := Call(f, func() {
			onError(goexitErr)
		})
		if err != nil {
			onError(err)
		}
	}()
}
