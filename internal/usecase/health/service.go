package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the cache store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentCache    = "cache"
	ComponentListings = "listings"
	ComponentIndex    = "index"
	ComponentPlanner  = "planner"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Deps lists the checked components. Only Cache is required.
type Deps struct {
	Cache    Pinger
	Listings Checker
	Index    Pinger
	Planner  Checker
}

// Service coordinates health checks.
type Service struct {
	deps Deps
}

// New creates a Service.
func New(deps Deps) *Service {
	return &Service{deps: deps}
}

// Check runs health checks against all components.
// A cache failure makes the service unhealthy; any other failure degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks[ComponentCache] = result(s.deps.Cache.Ping(ctx))
	if s.deps.Listings != nil {
		checks[ComponentListings] = result(s.deps.Listings.HealthCheck(ctx))
	}
	if s.deps.Index != nil {
		checks[ComponentIndex] = result(s.deps.Index.Ping(ctx))
	}
	if s.deps.Planner != nil {
		checks[ComponentPlanner] = result(s.deps.Planner.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentCache] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
