package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chandraveer04/token-browser/internal/core/identifier"
	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/besteffort"
	"github.com/chandraveer04/token-browser/pkg/logger"
	"github.com/chandraveer04/token-browser/pkg/metrics"
	"github.com/chandraveer04/token-browser/pkg/xerr"
)

// fixtureChecker 开发环境内置的测试账户不走格式校验
type fixtureChecker interface {
	IsFixture(method domain.Method, identifier string) bool
}

type BankingService struct {
	providers map[domain.Environment]domain.BalanceProvider
	store     domain.BankingStore
	audit     *AuditService
	rates     domain.RateSource
	now       func() time.Time
}

// NewBankingService providers 按环境在启动时选定
func NewBankingService(
	providers map[domain.Environment]domain.BalanceProvider,
	store domain.BankingStore,
	audit *AuditService,
	rates domain.RateSource,
) *BankingService {
	return &BankingService{
		providers: providers,
		store:     store,
		audit:     audit,
		rates:     rates,
		now:       time.Now,
	}
}

func (s *BankingService) acceptable(env domain.Environment, method domain.Method, id string) bool {
	if identifier.Validate(method, id) {
		return true
	}
	if env != domain.EnvDevelopment {
		return false
	}
	fc, ok := s.providers[env].(fixtureChecker)
	return ok && fc.IsFixture(method, id)
}

// FetchBalance 校验 -> 脱敏 -> 查余额 -> 落库 + 一条审计
// 原始标识符只交给余额提供方，不进日志也不落库；没通过校验的连脱敏结果都不留
func (s *BankingService) FetchBalance(ctx context.Context, sess domain.Session, method domain.Method, id string, env domain.Environment) (*domain.BankingRecord, error) {
	if sess.ID == "" {
		sess.ID = s.GenerateSessionToken()
	}
	activity := &domain.ActivityRecord{
		Action:           domain.ActionFetchBalance,
		Method:           method,
		MaskedIdentifier: identifier.Rejected,
		Environment:      env,
		SessionID:        sess.ID,
		IPAddress:        sess.IPAddress,
		UserAgent:        sess.UserAgent,
	}
	fail := func(err error) (*domain.BankingRecord, error) {
		activity.Status = domain.StatusFailure
		activity.Details = domain.Details{"error": xerr.MsgOf(err)}
		s.audit.Append(ctx, activity)
		metrics.BankingFetchTotal.WithLabelValues(string(env), string(method), string(domain.StatusFailure)).Inc()
		logger.Warn(ctx, "fetch balance failed",
			zap.String("method", string(method)),
			zap.String("identifier", activity.MaskedIdentifier),
			zap.String("environment", string(env)),
			zap.Error(err))
		return nil, err
	}

	if !s.acceptable(env, method, id) {
		return fail(xerr.New(xerr.ValidationError, "Invalid banking information format"))
	}
	activity.MaskedIdentifier = identifier.Mask(method, id)

	provider, ok := s.providers[env]
	if !ok || provider == nil {
		return fail(xerr.New(xerr.ProviderError, "no balance provider for environment "+string(env)))
	}
	bal, err := provider.FetchBalance(ctx, method, id)
	if err != nil {
		if !xerr.IsCode(err, xerr.ProviderError) {
			err = xerr.Wrap(err, xerr.ProviderError, "Failed to fetch banking information")
		}
		return fail(err)
	}

	rec := &domain.BankingRecord{
		User:             sess.UserKey(),
		Method:           method,
		MaskedIdentifier: activity.MaskedIdentifier,
		Name:             bal.Name,
		Balance:          bal.Balance,
		Currency:         bal.Currency,
		SessionID:        sess.ID,
		Environment:      env,
		LastUpdated:      s.now().UTC(),
	}
	stored := *rec
	saved := besteffort.Do(ctx, "upsert_banking", func(ctx context.Context) error {
		return s.store.UpsertBanking(ctx, &stored)
	})

	activity.Status = domain.StatusSuccess
	audited := s.audit.Append(ctx, activity)
	rec.PersistFailure = besteffort.Tally(saved, audited)
	metrics.BankingFetchTotal.WithLabelValues(string(env), string(method), string(domain.StatusSuccess)).Inc()
	return rec, nil
}

// ConvertCurrency 直接使用汇率源，不做兜底
func (s *BankingService) ConvertCurrency(ctx context.Context, amount decimal.Decimal, from, to string) (*domain.Conversion, error) {
	if s.rates == nil {
		return nil, xerr.New(xerr.ConversionError, "rate source not configured")
	}
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	rate, err := s.rates.Rate(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &domain.Conversion{
		Amount:    amount,
		From:      from,
		To:        to,
		Rate:      rate,
		Converted: amount.Mul(rate),
	}, nil
}

// GenerateSessionToken 只用于关联同一会话的记录，不是凭证
func (s *BankingService) GenerateSessionToken() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", s.now().UnixNano(), uuid.NewString())))
	return hex.EncodeToString(sum[:])
}

// RecordsFor 用户已保存的银行记录，最近更新的在前
func (s *BankingService) RecordsFor(ctx context.Context, user string, method domain.Method) ([]domain.BankingRecord, error) {
	return s.store.ListBanking(ctx, domain.Session{User: user}.UserKey(), method)
}
