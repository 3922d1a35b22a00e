package bankapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/logger"
	"github.com/chandraveer04/token-browser/pkg/ratelimit"
	"github.com/chandraveer04/token-browser/pkg/xerr"
)

const (
	BreakerBalance = "bank:balance"
	BreakerAudit   = "bank:audit"

	maxBody = 1 << 20
)

// Cipher 报文加解密，生产环境由 securechannel 提供
type Cipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // 默认 15s
}

// Client 生产环境银行接口
type Client struct {
	cfg     ClientConfig
	cipher  Cipher
	hc      *http.Client
	breaker *ratelimit.Manager
	now     func() time.Time
}

var (
	_ domain.BalanceProvider = (*Client)(nil)
	_ domain.AuditSink       = (*Client)(nil)
)

func NewClient(cfg ClientConfig, cipher Cipher, breaker *ratelimit.Manager) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("bankapi: empty base url")
	}
	if cipher == nil {
		return nil, errors.New("bankapi: nil cipher")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:     cfg,
		cipher:  cipher,
		hc:      &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		now:     time.Now,
	}, nil
}

type envelope struct {
	EncryptedData string `json:"encryptedData"`
}

type balanceRequest struct {
	Method     domain.Method `json:"method"`
	Identifier string        `json:"identifier"`
}

type balanceResponse struct {
	Success bool                `json:"success"`
	Data    *domain.BankBalance `json:"data"`
}

func (c *Client) FetchBalance(ctx context.Context, method domain.Method, identifier string) (*domain.BankBalance, error) {
	var out *domain.BankBalance
	err := c.guard(BreakerBalance, func() error {
		b, err := c.fetch(ctx, method, identifier)
		out = b
		return err
	})
	if err != nil {
		if xerr.IsCode(err, xerr.ProviderError) {
			return nil, err
		}
		return nil, xerr.Wrap(err, xerr.ProviderError, "banking provider unavailable")
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, method domain.Method, identifier string) (*domain.BankBalance, error) {
	plain, err := json.Marshal(balanceRequest{Method: method, Identifier: identifier})
	if err != nil {
		return nil, xerr.Wrap(err, xerr.ProviderError, "encode request")
	}
	sealed, err := c.cipher.Encrypt(plain)
	if err != nil {
		return nil, xerr.Wrap(err, xerr.ProviderError, "encrypt request")
	}

	body, err := c.post(ctx, "/balance", envelope{EncryptedData: sealed}, true)
	if err != nil {
		return nil, xerr.Wrap(err, xerr.ProviderError, "balance request failed")
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, xerr.Wrap(err, xerr.ProviderError, "unexpected provider response")
	}
	if env.EncryptedData == "" {
		return nil, xerr.New(xerr.ProviderError, "provider response is not encrypted")
	}
	opened, err := c.cipher.Decrypt(env.EncryptedData)
	if err != nil {
		return nil, xerr.Wrap(err, xerr.ProviderError, "decrypt response")
	}

	var resp balanceResponse
	if err := json.Unmarshal(opened, &resp); err != nil {
		return nil, xerr.Wrap(err, xerr.ProviderError, "decode response")
	}
	if resp.Data == nil || resp.Data.Currency == "" {
		return nil, xerr.New(xerr.ProviderError, "provider returned no balance")
	}
	return resp.Data, nil
}

type auditPayload struct {
	Action           string             `json:"action"`
	Method           domain.Method      `json:"method"`
	MaskedIdentifier string             `json:"maskedIdentifier"`
	Environment      domain.Environment `json:"environment"`
	SessionID        string             `json:"sessionId"`
	Status           domain.Status      `json:"status"`
	Timestamp        time.Time          `json:"timestamp"`
}

// SendAudit 转发到 POST /audit-log，只带脱敏后的标识
func (c *Client) SendAudit(ctx context.Context, rec *domain.ActivityRecord) error {
	p := auditPayload{
		Action:           rec.Action,
		Method:           rec.Method,
		MaskedIdentifier: rec.MaskedIdentifier,
		Environment:      rec.Environment,
		SessionID:        rec.SessionID,
		Status:           rec.Status,
		Timestamp:        rec.Timestamp,
	}
	return c.guard(BreakerAudit, func() error {
		_, err := c.post(ctx, "/audit-log", p, false)
		return err
	})
}

func (c *Client) guard(name string, fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	return c.breaker.Do(name, fn)
}

func (c *Client) post(ctx context.Context, path string, payload any, stamp bool) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if stamp {
		req.Header.Set("X-Client-Timestamp", c.now().UTC().Format(time.RFC3339Nano))
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	logger.Debug(ctx, "banking api call",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("cost", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("post %s: status %d", path, resp.StatusCode)
	}
	return body, nil
}
