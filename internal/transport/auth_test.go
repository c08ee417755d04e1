package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/aigo/pkg/errors"
)

// TestNoAuth tests that NoAuth applies no authentication.
func TestNoAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&NoAuth{}).Apply(req, "test-api-key")
	assert.Empty(t, req.Header)
}

// TestBearerAuth tests Bearer token authentication.
func TestBearerAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&BearerAuth{}).Apply(req, "test-api-key")
	assert.Equal(t, "Bearer test-api-key", req.Header.Get("Authorization"))
}

// TestHeaderAuth tests custom header authentication.
func TestHeaderAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&HeaderAuth{Header: "x-api-key"}).Apply(req, "test-api-key")
	assert.Equal(t, "test-api-key", req.Header.Get("x-api-key"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

// TestQueryAuth tests query parameter authentication.
func TestQueryAuth(t *testing.T) {
	u, _ := url.Parse("https://example.com/api/models?existing=1")
	req := &http.Request{URL: u, Header: make(http.Header)}
	(&QueryAuth{Param: "key"}).Apply(req, "k1")

	assert.Equal(t, "k1", req.URL.Query().Get("key"))
	assert.Equal(t, "1", req.URL.Query().Get("existing"))

	// nil URL is ignored
	(&QueryAuth{Param: "key"}).Apply(&http.Request{}, "k1")
}

func TestParseAuth(t *testing.T) {
	tests := []struct {
		scheme string
		want   Authenticator
	}{
		{"", &BearerAuth{}},
		{"bearer", &BearerAuth{}},
		{"header", &HeaderAuth{Header: "x-api-key"}},
		{"header:X-Token", &HeaderAuth{Header: "X-Token"}},
		{"query:apikey", &QueryAuth{Param: "apikey"}},
		{"none", &NoAuth{}},
	}
	for _, tt := range tests {
		t.Run(tt.scheme, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAuth(tt.scheme))
		})
	}
}

func TestClientGetBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			_, _ = w.Write([]byte(`{"models":[]}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("upstream down"))
		}
	}))
	defer srv.Close()

	c := New("aa", &BearerAuth{}, WithAPIKey("secret"), WithHTTPClient(srv.Client()))

	body, err := c.GetBody(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.JSONEq(t, `{"models":[]}`, string(body))

	_, err = c.GetBody(context.Background(), srv.URL+"/fail")
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestClientMaxBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	c := New("aa", nil, WithMaxBody(4))
	body, err := c.GetBody(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(body))
}
