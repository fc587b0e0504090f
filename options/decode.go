package options

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/kbukum/mediaflow/errors"
)

// Decode maps resolved options onto out, a pointer to a struct tagged with
// `mapstructure` keys. Values are weakly typed so "25" decodes into an int
// and durations may be given as strings. Keys out has no field for are
// ignored; engines pick the subset they understand.
func Decode(o Options, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return errors.Internal(err)
	}
	if err := dec.Decode(map[string]any(o)); err != nil {
		return errors.Configuration(fmt.Sprintf("invalid options for %T", out)).WithCause(err)
	}
	return nil
}
