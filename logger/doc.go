// Package logger provides zerolog-backed structured logging for HTTP API
// clients.
//
// Loggers are named after the client they serve and can be registered so
// each client resolves its own logger by name.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("billing-api")
//	log.Debug("request sent", logger.Fields(logger.FieldMethod, "GET"))
package logger
