// Package resilience provides the concurrency gate and retry helpers stages
// use around engine calls.
//
//   - Bulkhead limits concurrent calls. NewSingleFlight builds the gate each
//     stage holds so that at most one engine call is in flight.
//   - Retry re-attempts an operation with exponential backoff. engine.Retrying
//     uses it to retry engine creation.
//
//	gate := resilience.NewSingleFlight()
//	err := gate.Execute(ctx, func() error {
//	    frames, err = dec.Process(ctx, packets)
//	    return err
//	})
package resilience
