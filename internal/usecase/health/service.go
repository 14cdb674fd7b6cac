package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy: every component answered.
	Healthy Status = "ok"
	// Degraded: searches still run, an auxiliary component (the response
	// cache) is failing.
	Degraded Status = "degraded"
	// Unhealthy: the search database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// DatabaseCheck names the search database in a Report.
const DatabaseCheck = "database"

const defaultTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type component struct {
	name string
	p    Pinger
}

// Service coordinates health checks.
type Service struct {
	db      Pinger
	aux     []component
	timeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithComponent adds an auxiliary component whose failure degrades but does
// not fail the service. A nil pinger is ignored.
func WithComponent(name string, p Pinger) Option {
	return func(s *Service) {
		if p != nil {
			s.aux = append(s.aux, component{name: name, p: p})
		}
	}
}

// WithTimeout bounds every check run. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a Service around the search database.
func New(db Pinger, opts ...Option) *Service {
	s := &Service{db: db, timeout: defaultTimeout}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check pings every component concurrently. A component that does not
// answer within the timeout counts as failed.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	all := append([]component{{name: DatabaseCheck, p: s.db}}, s.aux...)
	results := make([]CheckResult, len(all))

	var wg sync.WaitGroup
	for i, c := range all {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = CheckOK
			if err := c.p.Ping(ctx); err != nil {
				results[i] = CheckError
			}
		}()
	}
	wg.Wait()

	r := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(all))}
	for i, c := range all {
		r.Checks[c.name] = results[i]
		if results[i] == CheckOK {
			continue
		}
		if c.name == DatabaseCheck {
			r.Status = Unhealthy
		} else if r.Status == Healthy {
			r.Status = Degraded
		}
	}
	return r
}
