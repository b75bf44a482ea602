package tenant

import (
	"context"

	"authlinks/internal/logger"
)

// Executor runs work under a tenant's system identity. All work for
// one tenant's sub-batch executes inside one call, synchronously,
// before the orchestrator moves to the next tenant.
type Executor interface {
	RunAsSystemUser(ctx context.Context, tenant string, fn func(ctx context.Context) error) error
}

type SystemUserExecutor struct {
	logger logger.Logger
}

func NewSystemUserExecutor(log logger.Logger) *SystemUserExecutor {
	return &SystemUserExecutor{logger: log}
}

func (e *SystemUserExecutor) RunAsSystemUser(ctx context.Context, tenant string, fn func(ctx context.Context) error) error {
	scoped := WithTenant(ctx, tenant)
	e.logger.DebugwCtx(scoped, "Entering tenant scope")
	err := fn(scoped)
	e.logger.DebugwCtx(scoped, "Leaving tenant scope")
	return err
}
