package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandraveer04/token-browser/internal/api/handler"
	appConfig "github.com/chandraveer04/token-browser/internal/config"
	"github.com/chandraveer04/token-browser/pkg/orm"
)

const demoOwner = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &appConfig.Config{
		Log: appConfig.LogConfig{Level: "error", File: filepath.Join(t.TempDir(), "app.log")},
		DB:  orm.Config{Driver: orm.DriverSQLite, DSN: ":memory:", LogLevel: "silent"},
		Chain: appConfig.ChainConfig{Networks: map[string]appConfig.NetworkConfig{
			"development": {Mode: appConfig.ModeSimulated, DemoOwners: []string{demoOwner}},
		}},
		HTTP: appConfig.HTTPConfig{RPS: 1000, Burst: 1000},
	}
	a := NewWithConfig(cfg)
	cleanUp, err := a.StartService(ctx)
	require.NoError(t, err)
	t.Cleanup(cleanUp)
	return a.StartHttp().Handler
}

func call(t *testing.T, h http.Handler, method, path, body string, headers ...string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestApp_EndToEnd(t *testing.T) {
	h := newTestApp(t)

	t.Run("demo tokens are reconciled", func(t *testing.T) {
		status, env := call(t, h, http.MethodGet, "/api/tokens?owner="+demoOwner+"&network=development", "")
		require.Equal(t, http.StatusOK, status)
		var view struct {
			Tokens []struct {
				Symbol string `json:"symbol"`
			} `json:"tokens"`
			Stale bool `json:"stale"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &view))
		assert.False(t, view.Stale)
		assert.Len(t, view.Tokens, 3)
	})

	t.Run("unconfigured network is unavailable", func(t *testing.T) {
		status, _ := call(t, h, http.MethodGet, "/api/tokens?owner="+demoOwner+"&network=mainnet", "")
		assert.Equal(t, http.StatusServiceUnavailable, status)
	})

	t.Run("banking fixture and audit trail", func(t *testing.T) {
		status, env := call(t, h, http.MethodPost, "/api/banking/balance",
			`{"method":"upi","identifier":"user@bank","environment":"development"}`,
			handler.HeaderSessionID, "e2e-session")
		require.Equal(t, http.StatusOK, status)
		var rec struct {
			Name     string `json:"name"`
			Currency string `json:"currency"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &rec))
		assert.Equal(t, "John Doe", rec.Name)
		assert.Equal(t, "INR", rec.Currency)

		status, env = call(t, h, http.MethodGet, "/api/activities?sessionId=e2e-session", "")
		require.Equal(t, http.StatusOK, status)
		var page struct {
			Activities []struct {
				Status string `json:"status"`
			} `json:"activities"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &page))
		require.Len(t, page.Activities, 1)
		assert.Equal(t, "success", page.Activities[0].Status)
	})

	t.Run("production disabled without credentials", func(t *testing.T) {
		status, _ := call(t, h, http.MethodPost, "/api/banking/balance",
			`{"method":"upi","identifier":"john.doe@okbank.com","environment":"production"}`)
		assert.Equal(t, http.StatusBadGateway, status)
	})

	t.Run("conversion without rate source", func(t *testing.T) {
		status, _ := call(t, h, http.MethodGet, "/api/banking/convert?amount=1&from=USD&to=EUR", "")
		assert.Equal(t, http.StatusBadGateway, status)
	})
}
