package oracle

import "github.com/NeuralTrust/ShieldGate/pkg/infra/httpx"

type ArcjetClientOption func(*ArcjetClient)

func WithHTTPClient(client httpx.Client) ArcjetClientOption {
	return func(c *ArcjetClient) {
		if client != nil {
			c.client = client
		}
	}
}

func WithCircuitBreaker(breaker httpx.CircuitBreaker) ArcjetClientOption {
	return func(c *ArcjetClient) {
		if breaker != nil {
			c.circuitBreaker = breaker
		}
	}
}
