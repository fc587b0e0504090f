// Package logger provides structured logging for mediaflow using zerolog.
//
// It supports JSON and console output, level configuration, and scoped
// loggers: every stage logs through a logger tagged with its name, kind and
// instance ID, and WithContext adds the active trace and span IDs.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("pipeline").WithStage("decoder", "decode", id)
//	log.Info("stage ready", logger.Fields("units", 0))
package logger
