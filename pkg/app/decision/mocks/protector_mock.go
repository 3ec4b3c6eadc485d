package mocks

import (
	"context"
	"fmt"

	"github.com/NeuralTrust/ShieldGate/pkg/domain/decision"
	"github.com/NeuralTrust/ShieldGate/pkg/infra/oracle"
	"github.com/stretchr/testify/mock"
)

type Protector struct {
	mock.Mock
}

func (m *Protector) Protect(ctx context.Context, req oracle.ProtectRequest) (*decision.Decision, error) {
	args := m.Called(ctx, req)
	d, ok := args.Get(0).(*decision.Decision)
	if !ok && args.Get(0) != nil {
		return nil, fmt.Errorf("expected *decision.Decision, got %T", args.Get(0))
	}
	return d, args.Error(1)
}
