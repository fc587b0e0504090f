package stage

// Kind is the closed set of stage variants.
type Kind int

const (
	KindSource Kind = iota
	KindDecoder
	KindEncoder
	KindFilterer
	KindSink
	KindPredicate
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindDecoder:
		return "decoder"
	case KindEncoder:
		return "encoder"
	case KindFilterer:
		return "filterer"
	case KindSink:
		return "sink"
	case KindPredicate:
		return "predicate"
	default:
		return "unknown"
	}
}

// State is a stage's lifecycle state. Closed is terminal.
type State int

const (
	StateUninitialized State = iota
	StateResolving
	StateReady
	StateProcessing
	StateFlushing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateResolving:
		return "resolving"
	case StateReady:
		return "ready"
	case StateProcessing:
		return "processing"
	case StateFlushing:
		return "flushing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
