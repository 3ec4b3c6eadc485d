package httpx

import "net/http"

// Client is the subset of *http.Client the oracle client depends on.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}
