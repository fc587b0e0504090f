package libav

import (
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/options"
)

// Option keys carrying native values between engines. They are read with a
// type assertion instead of options.Decode.
const (
	KeyStream          = "stream"
	KeyCodecParameters = "codec_parameters"
	KeyTimeBase        = "time_base"
)

var defaultTimeBase = astiav.NewRational(1, 25)

// rational reads key as an astiav.Rational or an "N/D" string.
func rational(o options.Options, key string) (astiav.Rational, bool, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return astiav.Rational{}, false, nil
	}
	switch r := v.(type) {
	case astiav.Rational:
		return r, true, nil
	case string:
		var num, den int
		if _, err := fmt.Sscanf(r, "%d/%d", &num, &den); err != nil || den == 0 {
			return astiav.Rational{}, false, errors.InvalidInput(key, fmt.Sprintf("%q is not a rational N/D", r))
		}
		return astiav.NewRational(num, den), true, nil
	default:
		return astiav.Rational{}, false, errors.InvalidInput(key, fmt.Sprintf("unsupported type %T", v))
	}
}

// dictionary builds an FFmpeg dictionary from string options. A nil map
// returns a nil dictionary.
func dictionary(m map[string]string) (*astiav.Dictionary, error) {
	if len(m) == 0 {
		return nil, nil
	}
	d := astiav.NewDictionary()
	for k, v := range m {
		if err := d.Set(k, v, astiav.NewDictionaryFlags()); err != nil {
			d.Free()
			return nil, fmt.Errorf("setting option %s: %w", k, err)
		}
	}
	return d, nil
}

func freeDictionary(d *astiav.Dictionary) {
	if d != nil {
		d.Free()
	}
}

func freePackets(pkts []*astiav.Packet) {
	for _, p := range pkts {
		if p != nil {
			p.Free()
		}
	}
}

func freeFrames(frames []*astiav.Frame) {
	for _, f := range frames {
		if f != nil {
			f.Free()
		}
	}
}
