// Package validation provides input validation for stage options and
// configuration.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Failures are returned as
// *errors.AppError with the INVALID_INPUT code and per-field details.
//
// # Struct Tag Validation
//
//	type StreamOptions struct {
//	    HighWaterMark int `mapstructure:"high_water_mark" validate:"gte=0"`
//	}
//	err := validation.Validate(opts)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.NotEmpty("streams", len(streams))
//	err := v.Validate()
package validation
