package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	name string
	err  error
}

func (p fakePinger) Name() string                 { return p.name }
func (p fakePinger) Ping(_ context.Context) error { return p.err }

func TestHealthCheck(t *testing.T) {
	healthy := NewHealthChecker(fakePinger{name: "postgres"}, fakePinger{name: "redis"}).Check(context.Background())
	assert.True(t, healthy.Healthy())
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, healthy.Checks)

	degraded := NewHealthChecker(fakePinger{name: "postgres"}, fakePinger{name: "redis", err: errors.New("dial tcp: refused")}).Check(context.Background())
	assert.False(t, degraded.Healthy())
	assert.Equal(t, "degraded", degraded.Status)
	assert.Equal(t, "error: dial tcp: refused", degraded.Checks["redis"])
}
