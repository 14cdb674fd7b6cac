package facetdex

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	healthuc "github.com/kailas-cloud/facetdex/internal/usecase/health"
)

// HealthStatus is the aggregated health of the client's components.
// Status is "ok", "degraded" (the response cache fails, searches still
// run) or "error" (the database is unreachable).
type HealthStatus struct {
	Status string
	Checks map[string]string // component → "ok" or "error"
}

// OK reports whether every component answered.
func (h HealthStatus) OK() bool { return h.Status == string(healthuc.Healthy) }

// Failing lists the failing components in name order.
func (h HealthStatus) Failing() []string {
	var out []string
	for name, result := range h.Checks {
		if result != string(healthuc.CheckOK) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Health checks every component. A degraded or failed check is logged and
// counted as a failed "health" operation.
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()

	report := c.healthSvc.Check(ctx)
	h := HealthStatus{
		Status: string(report.Status),
		Checks: make(map[string]string, len(report.Checks)),
	}
	for name, result := range report.Checks {
		h.Checks[name] = string(result)
	}

	var err error
	if !h.OK() {
		err = fmt.Errorf("health %s: failing %s", h.Status, strings.Join(h.Failing(), ", "))
	}
	c.obs.observe("health", "", start, err)
	return h
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
