// Package component defines the lifecycle contract of long-lived
// dependencies such as configured API clients.
//
// Lazy tracks start and stop for a single component. Registry starts a set
// of components in order, stops them in reverse and aggregates health.
package component
