package di

// KeyNames holds the well-known service keys the client resolves.
type KeyNames struct {
	Logger                string
	Config                string
	RequestResponseLogger string
	ErrorSink             string
	ClientMetrics         string
}

// Keys contains the well-known service keys.
var Keys = KeyNames{
	Logger:                "logger",
	Config:                "config",
	RequestResponseLogger: "httpapi.request_response_logger",
	ErrorSink:             "httpapi.error_sink",
	ClientMetrics:         "httpapi.client_metrics",
}
