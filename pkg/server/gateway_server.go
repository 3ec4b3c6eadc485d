package server

import (
	"fmt"

	"github.com/NeuralTrust/ShieldGate/pkg/config"
	handlers "github.com/NeuralTrust/ShieldGate/pkg/handlers/http"
	"github.com/NeuralTrust/ShieldGate/pkg/middleware"
	"github.com/NeuralTrust/ShieldGate/pkg/server/router"
	"github.com/sirupsen/logrus"
)

type (
	GatewayServerDI struct {
		Config              *config.Config
		Logger              *logrus.Logger
		MiddlewareTransport middleware.Transport
		HandlerTransport    handlers.HandlerTransport
	}
	GatewayServer struct {
		*BaseServer
	}
)

func NewGatewayServer(di GatewayServerDI) (*GatewayServer, error) {
	s := &GatewayServer{
		BaseServer: NewBaseServer(di.Config, di.Logger),
	}
	gatewayRouter := router.NewGatewayRouter(di.MiddlewareTransport, di.HandlerTransport, di.Config.Decision.Route)
	if err := s.WithRouters(gatewayRouter); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *GatewayServer) Run() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)
	s.Logger.WithFields(logrus.Fields{
		"addr":  addr,
		"route": s.Config.Decision.Route,
	}).Info("starting decision gateway")
	return s.Router.Listen(addr)
}

func (s *GatewayServer) Shutdown() error {
	return s.Router.ShutdownWithTimeout(shutdownTimeout)
}
