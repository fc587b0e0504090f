package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Stage fault codes
const (
	// ErrCodeConfiguration indicates configuration could not be resolved or has the wrong shape.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeEngineCreation indicates the engine factory rejected the resolved configuration.
	ErrCodeEngineCreation ErrorCode = "ENGINE_CREATION_ERROR"
	// ErrCodeProcessing indicates a process, flush, read or write call failed.
	ErrCodeProcessing ErrorCode = "PROCESSING_ERROR"
	// ErrCodeLifecycle indicates an operation was attempted in an invalid stage state.
	ErrCodeLifecycle ErrorCode = "LIFECYCLE_ERROR"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected failure outside the stage taxonomy.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Kind groups error codes into the four stage fault kinds.
type Kind string

const (
	KindConfiguration  Kind = "configuration"
	KindEngineCreation Kind = "engine_creation"
	KindProcessing     Kind = "processing"
	KindLifecycle      Kind = "lifecycle"
	KindUnknown        Kind = "unknown"
)

var codeKinds = map[ErrorCode]Kind{
	ErrCodeConfiguration:  KindConfiguration,
	ErrCodeInvalidInput:   KindConfiguration,
	ErrCodeMissingField:   KindConfiguration,
	ErrCodeEngineCreation: KindEngineCreation,
	ErrCodeProcessing:     KindProcessing,
	ErrCodeLifecycle:      KindLifecycle,
}

// KindOf returns the fault kind an error code belongs to.
func KindOf(code ErrorCode) Kind {
	if k, ok := codeKinds[code]; ok {
		return k
	}
	return KindUnknown
}
