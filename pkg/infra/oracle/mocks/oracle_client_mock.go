package mocks

import (
	"context"
	"fmt"

	"github.com/NeuralTrust/ShieldGate/pkg/domain/decision"
	"github.com/NeuralTrust/ShieldGate/pkg/domain/rule"
	"github.com/NeuralTrust/ShieldGate/pkg/infra/oracle"
	"github.com/stretchr/testify/mock"
)

type Client struct {
	mock.Mock
}

func (m *Client) Protect(ctx context.Context, req oracle.ProtectRequest, rules []rule.Rule) (*decision.Decision, error) {
	args := m.Called(ctx, req, rules)
	d, ok := args.Get(0).(*decision.Decision)
	if !ok && args.Get(0) != nil {
		return nil, fmt.Errorf("expected *decision.Decision, got %T", args.Get(0))
	}
	return d, args.Error(1)
}
