// Package validation validates configuration structs.
//
// Struct tags are checked with go-playground/validator; the custom tags
// uri_prefix and http_url cover lookup keys and base addresses. Checks that
// span several fields use the programmatic Validator. Both report an
// INVALID_INPUT AppError whose "fields" detail lists every failure.
//
//	type Options struct {
//	    ClientName  string `mapstructure:"client_name" validate:"required"`
//	    BaseAddress string `mapstructure:"base_address" validate:"http_url"`
//	}
//	err := validation.Validate(opts)
package validation
