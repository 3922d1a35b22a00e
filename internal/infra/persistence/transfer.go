package persistence

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/orm"
	"github.com/chandraveer04/token-browser/pkg/xerr"
)

// UpsertTransfer 哈希已存在时什么都不做
func (r *Repo) UpsertTransfer(ctx context.Context, rec *domain.TransferRecord) (bool, error) {
	rec.TokenAddress = strings.ToLower(rec.TokenAddress)
	rec.From = strings.ToLower(rec.From)
	rec.To = strings.ToLower(rec.To)
	rec.ID = 0

	res := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_hash"}},
		DoNothing: true,
	}).Create(rec)
	if res.Error != nil {
		return false, xerr.Wrap(res.Error, xerr.DbError, fmt.Sprintf("insert transfer %s failed", rec.TransactionHash))
	}
	return res.RowsAffected > 0, nil
}

func (r *Repo) transferScope(ctx context.Context, f domain.TransferFilter) *gorm.DB {
	q := r.conn(ctx).Model(&domain.TransferRecord{})
	if f.Address != "" {
		addr := strings.ToLower(f.Address)
		q = q.Where("from_address = ? OR to_address = ?", addr, addr)
	}
	if f.TokenAddress != "" {
		q = q.Where("token_address = ?", strings.ToLower(f.TokenAddress))
	}
	if f.Network != "" {
		q = q.Where("network = ?", f.Network)
	}
	if f.Since != nil {
		q = q.Where("timestamp >= ?", *f.Since)
	}
	return q
}

// QueryTransfers 区块高度倒序分页
func (r *Repo) QueryTransfers(ctx context.Context, f domain.TransferFilter, page, pageSize int) ([]domain.TransferRecord, int64, error) {
	var total int64
	if err := r.transferScope(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, xerr.Wrap(err, xerr.DbError, "count transfers failed")
	}

	var out []domain.TransferRecord
	q := r.transferScope(ctx, f).Order("block_number DESC").Order("id DESC")
	if err := orm.ApplyPagination(q, page, pageSize).Find(&out).Error; err != nil {
		return nil, 0, xerr.Wrap(err, xerr.DbError, "query transfers failed")
	}
	return out, total, nil
}

// TransferStats Address 必填
func (r *Repo) TransferStats(ctx context.Context, f domain.TransferFilter) (*domain.TransferStats, error) {
	if f.Address == "" {
		return nil, xerr.New(xerr.RequestParamsError, "address is required")
	}
	addr := strings.ToLower(f.Address)
	scoped := f
	scoped.Address = ""

	st := &domain.TransferStats{}
	if err := r.transferScope(ctx, scoped).Where("from_address = ?", addr).Count(&st.Sent).Error; err != nil {
		return nil, xerr.Wrap(err, xerr.DbError, "count sent failed")
	}
	if err := r.transferScope(ctx, scoped).Where("to_address = ?", addr).Count(&st.Received).Error; err != nil {
		return nil, xerr.Wrap(err, xerr.DbError, "count received failed")
	}
	if err := r.transferScope(ctx, f).Count(&st.Total).Error; err != nil {
		return nil, xerr.Wrap(err, xerr.DbError, "count total failed")
	}
	if err := r.transferScope(ctx, f).Distinct("token_address").Count(&st.UniqueTokens).Error; err != nil {
		return nil, xerr.Wrap(err, xerr.DbError, "count tokens failed")
	}
	return st, nil
}
