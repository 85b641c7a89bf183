// Package version reports the module version, used for the default
// User-Agent of clients.
//
// The version can be set at compile time:
//
//	go build -ldflags "-X github.com/kbukum/httpapi/version.Version=1.4.0"
package version
