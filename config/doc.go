// Package config loads application and client configuration with viper.
//
// Load merges a YAML config file, an optional .env file (read with
// godotenv) and the process environment. Environment variables override
// nested keys that the file declares, using underscores for both nesting
// and word breaks:
//
//	HTTP_CLIENT_BILLING_BASE_ADDRESS=https://billing.internal
//
// overrides http_client.billing.base_address.
package config
