// Package di provides the service container used as the ambient services
// handle of client calls.
//
// Components are registered lazily, eagerly or as singletons and resolved
// by key with type-safe generic helpers:
//
//	services := di.NewContainer()
//	_ = services.RegisterSingleton(di.Keys.RequestResponseLogger, myLogger)
//
//	l, ok := di.TryResolve[httpclient.RequestResponseLogger](services, di.Keys.RequestResponseLogger)
package di
