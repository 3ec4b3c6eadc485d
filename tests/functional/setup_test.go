package functional_test

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	appDecision "github.com/NeuralTrust/ShieldGate/pkg/app/decision"
	"github.com/NeuralTrust/ShieldGate/pkg/cache"
	"github.com/NeuralTrust/ShieldGate/pkg/config"
	"github.com/NeuralTrust/ShieldGate/pkg/domain/rule"
	handlers "github.com/NeuralTrust/ShieldGate/pkg/handlers/http"
	"github.com/NeuralTrust/ShieldGate/pkg/infra/fingerprint"
	infraLogger "github.com/NeuralTrust/ShieldGate/pkg/infra/logger"
	"github.com/NeuralTrust/ShieldGate/pkg/infra/oracle"
	"github.com/NeuralTrust/ShieldGate/pkg/middleware"
	"github.com/NeuralTrust/ShieldGate/pkg/server"
)

var (
	GatewayUrl string
	fakeOracle *oracleStub
)

func TestMain(m *testing.M) {
	fmt.Println("🔨 Creating Test Environment...")
	fakeOracle = newOracleStub()
	oracleServer := httptest.NewServer(fakeOracle)

	gateway := startGateway(oracleServer.URL)
	code := m.Run()

	_ = gateway.Shutdown()
	oracleServer.Close()
	fmt.Printf("🗑 Servers Stopped\n")
	os.Exit(code)
}

func startGateway(oracleURL string) *server.GatewayServer {
	logger := infraLogger.Discard()
	port := freePort()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:                  "127.0.0.1",
			Port:                  port,
			TrustForwardedHeaders: true,
			TrustedProxies:        []string{"127.0.0.1/32"},
		},
		Oracle: config.OracleConfig{
			Key:     "ajkey_functional",
			BaseURL: oracleURL,
			Timeout: 500 * time.Millisecond,
			Breaker: config.BreakerConfig{Timeout: time.Minute, MaxFailures: 1000},
		},
		Decision: config.DecisionConfig{
			Route:              "/api/arcjet",
			Requested:          5,
			ForcedOutcomes:     true,
			DebugSnapshot:      true,
			DistinctBotMessage: true,
			AllowedMessage:     "Bot not detected",
		},
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid functional config: %v", err)
	}

	tracker, err := fingerprint.NewTracker(
		cfg.Server.TrustForwardedHeaders,
		[]string{fingerprint.CharacteristicIP},
		cfg.Server.TrustedProxies...,
	)
	if err != nil {
		log.Fatalf("failed to build tracker: %v", err)
	}
	protector := appDecision.NewProtector(
		logger,
		oracle.NewArcjetClient(cfg.Oracle, logger),
		cache.NewMemoryCache(),
		rule.Defaults(),
		false,
	)

	gateway, err := server.NewGatewayServer(server.GatewayServerDI{
		Config: cfg,
		Logger: logger,
		MiddlewareTransport: middleware.Transport{
			PanicRecoverMiddleware: middleware.NewPanicRecoverMiddleware(logger),
			FingerprintMiddleware:  middleware.NewFingerPrintMiddleware(logger, tracker),
			MetricsMiddleware:      middleware.NewMetricsMiddleware(logger),
		},
		HandlerTransport: handlers.HandlerTransport{
			DecisionHandler:   handlers.NewDecisionHandler(logger, protector, tracker, cfg.Decision),
			GetVersionHandler: handlers.NewGetVersionHandler(logger),
			HealthHandler:     handlers.NewHealthHandler(),
		},
	})
	if err != nil {
		log.Fatalf("failed to build gateway: %v", err)
	}

	go func() {
		if err := gateway.Run(); err != nil {
			log.Printf("gateway stopped: %v", err)
		}
	}()

	GatewayUrl = fmt.Sprintf("http://127.0.0.1:%d", port)
	waitForServerReady(GatewayUrl+"/health", "decision gateway")
	return gateway
}

func freePort() int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("failed to reserve port: %v", err)
	}
	defer l.Close()
	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		log.Fatalf("unexpected listener address %T", l.Addr())
	}
	return addr.Port
}

func waitForServerReady(url, serverName string) {
	maxRetries := 50
	for i := 0; i < maxRetries; i++ {
		resp, err := http.Get(url) //nolint:gosec // URL is controlled in test environment
		if err == nil && resp.StatusCode < 500 {
			_ = resp.Body.Close()
			fmt.Printf("✅ %s is ready\n", serverName)
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	log.Fatalf("❌ %s failed to become ready", serverName)
}

// oracleStub answers decide calls with a canned decision chosen by the
// x-scenario header the gateway forwards in the request details.
type oracleStub struct {
	mu    sync.Mutex
	calls map[string]int
}

func newOracleStub() *oracleStub {
	return &oracleStub{calls: make(map[string]int)}
}

func (o *oracleStub) Calls(scenario string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[scenario]
}

func (o *oracleStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer ajkey_functional" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	raw, _ := io.ReadAll(r.Body)
	var req struct {
		Details struct {
			Headers map[string]string `json:"headers"`
		} `json:"details"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	scenario := req.Details.Headers["x-scenario"]
	o.mu.Lock()
	o.calls[scenario]++
	o.mu.Unlock()

	body, ok := scenarios[scenario]
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

var scenarios = map[string]string{
	"clean": `{"decision":{"id":"req_clean","conclusion":"ALLOW","reason":{"shield":{"shieldTriggered":false}},
		"ruleResults":[{"ruleId":"r1","state":"RUN","conclusion":"ALLOW"},{"ruleId":"r2","state":"RUN","conclusion":"ALLOW"},{"ruleId":"r3","state":"RUN","conclusion":"ALLOW"}],
		"ipDetails":{"isHosting":false}}}`,
	"rate": `{"decision":{"id":"req_rate","conclusion":"DENY","ttl":60,
		"reason":{"rateLimit":{"max":10,"remaining":0,"resetInSeconds":6,"windowInSeconds":10}},"ruleResults":[]}}`,
	"bot": `{"decision":{"id":"req_bot","conclusion":"DENY","reason":{"botV2":{"denied":["CURL"]}},"ruleResults":[]}}`,
	"hosting": `{"decision":{"id":"req_host","conclusion":"ALLOW","reason":{},"ruleResults":[],"ipDetails":{"isHosting":true}}}`,
	"spoofed": `{"decision":{"id":"req_spoof","conclusion":"ALLOW","reason":{},
		"ruleResults":[{"ruleId":"r2","state":"RUN","conclusion":"DENY","reason":{"botV2":{"denied":["GOOGLE_CRAWLER"],"spoofed":true}}}]}}`,
	"spoofed-dry-run": `{"decision":{"id":"req_spoof_dry","conclusion":"ALLOW","reason":{},
		"ruleResults":[{"ruleId":"r2","state":"DRY_RUN","conclusion":"DENY","reason":{"botV2":{"spoofed":true}}}]}}`,
}
