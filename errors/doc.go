// Package errors provides the structured error type shared by every stage.
//
// A stage fault is always an *AppError whose Code places it in one of four
// kinds: configuration, engine creation, processing or lifecycle. The
// pipeline surfaces exactly one such error when it terminates.
package errors
