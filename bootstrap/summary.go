package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/mediaflow/component"
)

// Summary tracks and prints what a pipeline run did.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	runDuration     time.Duration
}

// NewSummary creates a summary tracker.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records how long stages took to become ready.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// SetRunDuration records how long the pipeline ran.
func (s *Summary) SetRunDuration(d time.Duration) {
	s.runDuration = d
}

// DisplayStart prints the stage chain and live health once every stage is
// ready.
func (s *Summary) DisplayStart(w io.Writer, registry *component.Registry) {
	fmt.Fprintf(w, "\n🎬 %s v%s ready in %.2fs\n\n", s.serviceName, s.version, s.startupDuration.Seconds())
	s.writeStages(w, registry)
	fmt.Fprintf(w, "\n")
}

// DisplayFinish prints the outcome of the run and the final stage states.
func (s *Summary) DisplayFinish(w io.Writer, registry *component.Registry, runErr error) {
	if runErr != nil {
		fmt.Fprintf(w, "\n❌ %s failed after %.2fs: %v\n\n", s.serviceName, s.runDuration.Seconds(), runErr)
	} else {
		fmt.Fprintf(w, "\n✅ %s finished in %.2fs\n\n", s.serviceName, s.runDuration.Seconds())
	}
	s.writeStages(w, registry)
	fmt.Fprintf(w, "\n")
}

func (s *Summary) writeStages(w io.Writer, registry *component.Registry) {
	ctx := context.Background()
	descs := registry.Describe(ctx)
	if len(descs) == 0 {
		fmt.Fprintf(w, "   └── No stages registered\n")
		return
	}
	health := make(map[string]component.Health, len(descs))
	for _, h := range registry.HealthAll(ctx) {
		health[h.Name] = h
	}

	fmt.Fprintf(w, "📦 Stages\n")
	for i, d := range descs {
		prefix := "├──"
		if i == len(descs)-1 {
			prefix = "└──"
		}
		h := health[d.Name]
		icon, msg := healthStatusIcon(h.Status), ""
		switch {
		case h.Message == "closed":
			icon = "⏹️"
		case h.Status == component.StatusUnhealthy:
			msg = " (" + h.Message + ")"
		}
		fmt.Fprintf(w, "   %s %s %s [%s] %s%s\n", prefix, icon, d.Name, d.Type,
			strings.ToLower(d.Details), msg)
	}
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
