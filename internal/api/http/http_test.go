package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/encoding/json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandraveer04/token-browser/internal/api/handler"
	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/xerr"
)

type fakeChain struct {
	tokensErr error
	filter    domain.TransferFilter
	page      int
	size      int
}

func (f *fakeChain) TokensFor(_ context.Context, owner string, n domain.Network) (*domain.TokenView, error) {
	if f.tokensErr != nil {
		return nil, f.tokensErr
	}
	return &domain.TokenView{Owner: owner, Network: n, Tokens: []domain.TokenRecord{{Address: "0xt", Symbol: "TKN"}}}, nil
}

func (f *fakeChain) TransfersFor(_ context.Context, owner, asset string, n domain.Network) (*domain.TransferView, error) {
	return &domain.TransferView{Owner: owner, Asset: asset, Network: n}, nil
}

func (f *fakeChain) NativeBalance(_ context.Context, owner string, n domain.Network) (*domain.NativeBalance, error) {
	return &domain.NativeBalance{Owner: owner, Network: n, Symbol: n.NativeSymbol(), Wei: "1", Formatted: decimal.New(1, -18)}, nil
}

func (f *fakeChain) History(_ context.Context, flt domain.TransferFilter, page, size int) ([]domain.TransferRecord, int64, error) {
	f.filter, f.page, f.size = flt, page, size
	return []domain.TransferRecord{{TransactionHash: "0x1"}}, 41, nil
}

func (f *fakeChain) TransferStats(_ context.Context, _ string, _ domain.Network, _ string) (*domain.TransferStats, error) {
	return &domain.TransferStats{Sent: 1, Received: 2, Total: 3, UniqueTokens: 1}, nil
}

type fakeBanking struct {
	sess   domain.Session
	method domain.Method
	env    domain.Environment
}

func (f *fakeBanking) FetchBalance(_ context.Context, sess domain.Session, m domain.Method, id string, env domain.Environment) (*domain.BankingRecord, error) {
	f.sess, f.method, f.env = sess, m, env
	if id == "bad" {
		return nil, xerr.New(xerr.ValidationError, "Invalid banking information format")
	}
	return &domain.BankingRecord{User: sess.UserKey(), Method: m, Name: "John Doe", Currency: "INR"}, nil
}

func (f *fakeBanking) ConvertCurrency(_ context.Context, amount decimal.Decimal, from, to string) (*domain.Conversion, error) {
	if to == "XXX" {
		return nil, xerr.New(xerr.ConversionError, "no rate")
	}
	rate := decimal.NewFromInt(2)
	return &domain.Conversion{Amount: amount, From: from, To: to, Rate: rate, Converted: amount.Mul(rate)}, nil
}

func (f *fakeBanking) GenerateSessionToken() string { return "sess-1" }

func (f *fakeBanking) RecordsFor(_ context.Context, user string, _ domain.Method) ([]domain.BankingRecord, error) {
	return []domain.BankingRecord{{User: user}}, nil
}

type fakeAudit struct {
	filter   domain.ActivityFilter
	retained domain.RetentionRequest
}

func (f *fakeAudit) Query(_ context.Context, flt domain.ActivityFilter, _, _ int) ([]domain.ActivityRecord, int64, error) {
	f.filter = flt
	return nil, 0, nil
}

func (f *fakeAudit) Stats(_ context.Context, flt domain.ActivityFilter, _ string) (*domain.ActivityStats, error) {
	f.filter = flt
	return &domain.ActivityStats{Total: 2}, nil
}

func (f *fakeAudit) Purge(_ context.Context, req domain.RetentionRequest) (int64, error) {
	f.retained = req
	if req.OlderThanDays == nil && req.SessionID == "" {
		return 0, xerr.New(xerr.InvalidRetentionRequest, "olderThan or sessionId required")
	}
	return 7, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fixture struct {
	engine  *gin.Engine
	chain   *fakeChain
	banking *fakeBanking
	audit   *fakeAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	f := &fixture{chain: &fakeChain{}, banking: &fakeBanking{}, audit: &fakeAudit{}}
	f.engine = NewEngine(ctx, Services{Chain: f.chain, Banking: f.banking, Audit: f.audit}, Options{RPS: 1000, Burst: 1000})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, headers ...string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestRoutes_StatusMapping(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   int
	}{
		{"tokens ok", http.MethodGet, "/api/tokens?owner=0xabc&network=mainnet", "", http.StatusOK, xerr.OK},
		{"tokens missing owner", http.MethodGet, "/api/tokens?network=mainnet", "", http.StatusBadRequest, xerr.RequestParamsError},
		{"tokens bad network", http.MethodGet, "/api/tokens?owner=0xabc&network=solana", "", http.StatusBadRequest, xerr.ValidationError},
		{"native ok", http.MethodGet, "/api/tokens/native?owner=0xabc&network=mainnet", "", http.StatusOK, xerr.OK},
		{"transfers ok", http.MethodGet, "/api/transactions?owner=0xabc&network=mainnet&token=0xt", "", http.StatusOK, xerr.OK},
		{"stats needs address", http.MethodGet, "/api/transactions/stats", "", http.StatusBadRequest, xerr.RequestParamsError},
		{"balance invalid", http.MethodPost, "/api/banking/balance", `{"method":"upi","identifier":"bad"}`, http.StatusBadRequest, xerr.ValidationError},
		{"balance bad env", http.MethodPost, "/api/banking/balance", `{"method":"upi","identifier":"a@b.io","environment":"staging"}`, http.StatusBadRequest, xerr.ValidationError},
		{"balance missing body", http.MethodPost, "/api/banking/balance", `{}`, http.StatusBadRequest, xerr.RequestParamsError},
		{"convert bad amount", http.MethodGet, "/api/banking/convert?amount=abc&from=USD&to=EUR", "", http.StatusBadRequest, xerr.RequestParamsError},
		{"convert no rate", http.MethodGet, "/api/banking/convert?amount=1&from=USD&to=XXX", "", http.StatusBadGateway, xerr.ConversionError},
		{"purge no selector", http.MethodDelete, "/api/activities", "", http.StatusBadRequest, xerr.InvalidRetentionRequest},
		{"purge bad days", http.MethodDelete, "/api/activities?olderThan=x", "", http.StatusBadRequest, xerr.RequestParamsError},
		{"activities bad date", http.MethodGet, "/api/activities?startDate=yesterday", "", http.StatusBadRequest, xerr.RequestParamsError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, env.Code)
		})
	}
}

func TestRoutes_ChainUnavailable(t *testing.T) {
	f := newFixture(t)
	f.chain.tokensErr = xerr.New(xerr.ChainUnavailable, "node down")

	status, env := f.do(t, http.MethodGet, "/api/tokens?owner=0xabc&network=mainnet", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "node down", env.Message)
}

func TestBalance_SessionFromHeaders(t *testing.T) {
	f := newFixture(t)

	status, env := f.do(t, http.MethodPost, "/api/banking/balance",
		`{"method":"UPI","identifier":"user@bank"}`,
		handler.HeaderSessionID, "s-1", handler.HeaderUserAddress, "0xABC")
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "s-1", f.banking.sess.ID)
	assert.Equal(t, "0xABC", f.banking.sess.User)
	assert.Equal(t, domain.EnvDevelopment, f.banking.env)
	assert.Equal(t, domain.MethodUPI, f.banking.method)

	var rec domain.BankingRecord
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, "0xabc", rec.User)
	assert.Equal(t, "John Doe", rec.Name)
}

func TestConvertAndSession(t *testing.T) {
	f := newFixture(t)

	status, env := f.do(t, http.MethodGet, "/api/banking/convert?amount=12.5&from=USD&to=EUR", "")
	require.Equal(t, http.StatusOK, status)
	var conv domain.Conversion
	require.NoError(t, json.Unmarshal(env.Data, &conv))
	assert.True(t, conv.Converted.Equal(decimal.NewFromInt(25)))

	status, env = f.do(t, http.MethodPost, "/api/banking/session", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"sessionId":"sess-1"}`, string(env.Data))
}

func TestHistory_Pagination(t *testing.T) {
	f := newFixture(t)

	status, env := f.do(t, http.MethodGet, "/api/transactions/history?address=0xabc&token=0xdac17f&network=polygon&page=2&limit=20", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.Network("polygon"), f.chain.filter.Network)
	assert.Equal(t, "0xdac17f", f.chain.filter.TokenAddress)
	assert.Equal(t, 2, f.chain.page)

	var body struct {
		Pagination handler.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, handler.Pagination{Total: 41, Page: 2, PageSize: 20, TotalPages: 3}, body.Pagination)
}

func TestActivities_FiltersAndPurge(t *testing.T) {
	f := newFixture(t)

	status, _ := f.do(t, http.MethodGet, "/api/activities?sessionId=s-1&status=failure&startDate=2025-01-01", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "s-1", f.audit.filter.SessionID)
	assert.Equal(t, domain.StatusFailure, f.audit.filter.Status)
	require.NotNil(t, f.audit.filter.Start)
	assert.Equal(t, 2025, f.audit.filter.Start.Year())

	status, env := f.do(t, http.MethodDelete, "/api/activities?olderThan=30&sessionId=s-1", "")
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, f.audit.retained.OlderThanDays)
	assert.Equal(t, 30, *f.audit.retained.OlderThanDays)
	assert.Equal(t, "s-1", f.audit.retained.SessionID)
	assert.JSONEq(t, `{"deletedCount":7}`, string(env.Data))
}
