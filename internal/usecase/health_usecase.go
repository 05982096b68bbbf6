package usecase

import (
	"context"
	"sync"
	"time"
)

const healthTimeout = 2 * time.Second

// Pinger is a backing store that can report its liveness.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

type HealthReport struct {
	Status string            `json:"status"` // ok or degraded
	Checks map[string]string `json:"checks"`
}

func (r HealthReport) Healthy() bool { return r.Status == "ok" }

type HealthChecker interface {
	Check(ctx context.Context) HealthReport
}

type healthUseCase struct {
	pingers []Pinger
}

func NewHealthChecker(pingers ...Pinger) HealthChecker {
	return &healthUseCase{pingers: pingers}
}

// Check pings every store in parallel, each bounded by a short timeout.
func (uc *healthUseCase) Check(ctx context.Context) HealthReport {
	report := HealthReport{Status: "ok", Checks: make(map[string]string, len(uc.pingers))}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, p := range uc.pingers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, healthTimeout)
			defer cancel()
			status := "ok"
			if err := p.Ping(pctx); err != nil {
				status = "error: " + err.Error()
			}
			mu.Lock()
			report.Checks[p.Name()] = status
			if status != "ok" {
				report.Status = "degraded"
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	return report
}
