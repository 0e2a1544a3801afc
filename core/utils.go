package core

import (
	"reflect"

	"github.com/encodeous/manasim/state"
)

// Get returns the module of type T. It must only be called on the broker goroutine.
func Get[T state.Module](s *state.State) T {
	t := reflect.TypeFor[T]()
	return s.Modules[t.String()].(T)
}
