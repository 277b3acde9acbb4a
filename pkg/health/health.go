package health

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// Status is the outcome of a check or of the whole service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// ErrDegraded marks a check failure that leaves the service usable.
var ErrDegraded = errors.New("degraded")

// CheckFunc is a function that performs a health check
type CheckFunc func() error

// Check represents a single health check result
type Check struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Message     string    `json:"message"`
	LastChecked time.Time `json:"lastChecked"`
}

// Checker manages health checks for a service
type Checker struct {
	mu          sync.RWMutex
	checks      map[string]*Check
	lastHealthy time.Time
}

// NewChecker creates a new health checker
func NewChecker() *Checker {
	return &Checker{
		checks:      make(map[string]*Check),
		lastHealthy: time.Now(),
	}
}

// RunCheck executes a health check and updates the status. Errors wrapping
// ErrDegraded record a degraded check, any other error an unhealthy one.
func (c *Checker) RunCheck(name string, checkFunc CheckFunc) {
	status := StatusHealthy
	message := "OK"

	if err := checkFunc(); err != nil {
		status = StatusUnhealthy
		if errors.Is(err, ErrDegraded) {
			status = StatusDegraded
		}
		message = err.Error()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks[name] = &Check{
		Name:        name,
		Status:      status,
		Message:     message,
		LastChecked: time.Now(),
	}

	if c.overall() == StatusHealthy {
		c.lastHealthy = time.Now()
	}
}

// GetOverallStatus returns the worst status among the recorded checks
func (c *Checker) GetOverallStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.overall()
}

func (c *Checker) overall() Status {
	status := StatusHealthy
	for _, check := range c.checks {
		switch check.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// GetAllChecks returns all health check results ordered by name
func (c *Checker) GetAllChecks() []Check {
	c.mu.RLock()
	defer c.mu.RUnlock()

	checks := make([]Check, 0, len(c.checks))
	for _, check := range c.checks {
		checks = append(checks, *check)
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })
	return checks
}

// GetLastHealthyTime returns the last time all checks were healthy
func (c *Checker) GetLastHealthyTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastHealthy
}
