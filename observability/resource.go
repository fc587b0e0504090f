package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Service identifies the process emitting telemetry.
type Service struct {
	Name        string
	Version     string
	Environment string
}

// Collector is an OTLP HTTP endpoint, host:port.
type Collector struct {
	Endpoint string
	Insecure bool
}

const defaultCollector = "localhost:4318"

func defaultService(name string) Service {
	return Service{Name: name, Version: "0.0.0", Environment: "development"}
}

func (s Service) resource() (*resource.Resource, error) {
	return resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(s.Name),
		semconv.ServiceVersion(s.Version),
		attribute.String("environment", s.Environment),
	))
}
