package functional_test

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatewayResponse struct {
	Status     int
	RetryAfter string
	Body       map[string]interface{}
}

func sendRequest(t *testing.T, method, url string, headers map[string]string) gatewayResponse {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)

	var respData map[string]interface{}
	require.NoError(t, json.Unmarshal(respBytes, &respData), string(respBytes))

	return gatewayResponse{
		Status:     resp.StatusCode,
		RetryAfter: resp.Header.Get("Retry-After"),
		Body:       respData,
	}
}

func scenarioHeaders(scenario, ip string) map[string]string {
	return map[string]string{
		"X-Scenario": scenario,
		"X-Real-IP":  ip,
		"User-Agent": "Mozilla/5.0 (X11; Linux x86_64) Gecko/20100101 Firefox/128.0",
	}
}
