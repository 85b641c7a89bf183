package di

import "github.com/kbukum/httpapi/errors"

// Resolve returns the service under key as a T. A missing key, a failing
// constructor and a type mismatch are all configuration faults.
func Resolve[T any](c Container, key string) (T, error) {
	var zero T
	if c == nil {
		return zero, errors.ConfigurationFault("di: no container to resolve %s from", key)
	}
	instance, err := c.Resolve(key)
	if err != nil {
		return zero, errors.ConfigurationFault("di: resolve %s", key).WithCause(err)
	}
	v, ok := instance.(T)
	if !ok {
		return zero, errors.ConfigurationFault("di: %s is %T, expected %T", key, instance, zero)
	}
	return v, nil
}

// MustResolve is Resolve for services the caller cannot run without.
func MustResolve[T any](c Container, key string) T {
	v, err := Resolve[T](c, key)
	if err != nil {
		panic(err)
	}
	return v
}

// TryResolve looks up an optional service. Anything short of a registered
// T under key reports false.
//
//	if sink, ok := di.TryResolve[ErrorSink](services, di.Keys.ErrorSink); ok {
//	    sink.Report(ctx, err)
//	}
func TryResolve[T any](c Container, key string) (T, bool) {
	if c == nil || !c.Has(key) {
		var zero T
		return zero, false
	}
	v, err := Resolve[T](c, key)
	return v, err == nil
}
