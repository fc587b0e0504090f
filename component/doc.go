// Package component manages the lifecycle of the parts of a media
// pipeline.
//
// Components are started in registration order and stopped in reverse
// order, so stages registered source first are torn down sink first.
//
// # Interfaces
//
//   - Component: lifecycle (Start/Stop) and health reporting
//   - Describable: run summary descriptions
package component
