// Package future provides a settle-once pending value.
//
// A Future is produced by an asynchronous operation (engine creation,
// configuration resolution) and can be awaited any number of times by any
// number of goroutines. Futures of futures are awaited transitively by
// AwaitValue, which is what lets one stage's engine handle appear as a
// configuration field of another stage.
package future
