package persistence

import (
	"context"
	"strings"

	"gorm.io/gorm/clause"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/xerr"
)

// UpsertBanking (user, method, maskedIdentifier) 冲突时原地更新
func (r *Repo) UpsertBanking(ctx context.Context, rec *domain.BankingRecord) error {
	rec.User = strings.ToLower(rec.User)
	if rec.User == "" {
		rec.User = domain.UnknownUser
	}
	unlock := r.lockKey("banking", rec.User, string(rec.Method), rec.MaskedIdentifier)
	defer unlock()

	rec.ID = 0
	rec.LastUpdated = r.stamp()
	err := r.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_address"}, {Name: "method"}, {Name: "masked_identifier"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "balance", "currency", "session_id", "environment", "last_updated",
		}),
	}).Create(rec).Error
	if err != nil {
		return xerr.Wrap(err, xerr.DbError, "upsert banking record failed")
	}
	return nil
}

func (r *Repo) ListBanking(ctx context.Context, user string, method domain.Method) ([]domain.BankingRecord, error) {
	q := r.conn(ctx).Model(&domain.BankingRecord{}).Where("user_address = ?", strings.ToLower(user))
	if method != "" {
		q = q.Where("method = ?", method)
	}
	var out []domain.BankingRecord
	if err := q.Order("last_updated DESC").Find(&out).Error; err != nil {
		return nil, xerr.Wrap(err, xerr.DbError, "list banking records failed")
	}
	return out, nil
}
