package persistence

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm/clause"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/xerr"
)

// UpsertToken LastUpdated 在这里赋值，后写的一定更新
func (r *Repo) UpsertToken(ctx context.Context, rec *domain.TokenRecord) error {
	rec.Owner = strings.ToLower(rec.Owner)
	rec.Address = strings.ToLower(rec.Address)

	unlock := r.lockKey("token", rec.Owner, rec.Address, string(rec.Network))
	defer unlock()

	rec.ID = 0
	rec.LastUpdated = r.stamp()
	err := r.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner"}, {Name: "address"}, {Name: "network"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"chain_id", "name", "symbol", "decimals", "balance", "last_updated",
		}),
	}).Create(rec).Error
	if err != nil {
		return xerr.Wrap(err, xerr.DbError, fmt.Sprintf("upsert token %s/%s failed", rec.Owner, rec.Address))
	}
	return nil
}

// QueryTokens 最近更新的在前
func (r *Repo) QueryTokens(ctx context.Context, owner string, network domain.Network) ([]domain.TokenRecord, error) {
	q := r.conn(ctx).Model(&domain.TokenRecord{}).Where("owner = ?", strings.ToLower(owner))
	if network != "" {
		q = q.Where("network = ?", network)
	}
	var out []domain.TokenRecord
	if err := q.Order("last_updated DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, xerr.Wrap(err, xerr.DbError, "query tokens failed")
	}
	return out, nil
}
