package options

import (
	"fmt"
)

// Well-known option keys shared by stages and engines.
const (
	KeyURL      = "url"
	KeyFilename = "filename"
	KeyStreams  = "streams"
	KeyStream   = "stream"
	KeyCodecPar = "codecpar"
)

// Options is a configuration object: option name to value or pending value.
type Options map[string]any

// Clone returns a shallow copy of o.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Without returns a shallow copy of o with the given keys removed.
func (o Options) Without(keys ...string) Options {
	out := o.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Has reports whether key is present.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// String returns the string value at key.
func (o Options) String(key string) (string, bool) {
	s, ok := o[key].(string)
	return s, ok
}

// Target returns the output or input location named by the url or filename key.
func (o Options) Target() string {
	if s, ok := o.String(KeyURL); ok && s != "" {
		return s
	}
	if s, ok := o.String(KeyFilename); ok {
		return s
	}
	return ""
}

// AsOptions converts a mapping value to Options.
// Both Options and map[string]any are accepted.
func AsOptions(v any) (Options, bool) {
	switch m := v.(type) {
	case Options:
		return m, true
	case map[string]any:
		return Options(m), true
	default:
		return nil, false
	}
}

// List converts a list value to a slice of Options.
// Both []Options and []map[string]any are accepted, as is []any whose
// elements are mappings.
func List(v any) ([]Options, error) {
	switch l := v.(type) {
	case []Options:
		return l, nil
	case []map[string]any:
		out := make([]Options, len(l))
		for i, m := range l {
			out[i] = Options(m)
		}
		return out, nil
	case []any:
		out := make([]Options, len(l))
		for i, e := range l {
			m, ok := AsOptions(e)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, not a mapping", i, e)
			}
			out[i] = m
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%T is not a list", v)
	}
}
