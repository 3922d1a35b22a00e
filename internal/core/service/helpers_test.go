package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/internal/infra/persistence"
	"github.com/chandraveer04/token-browser/pkg/orm"
)

var errDiskFull = errors.New("disk full")

func newTestRepo(t *testing.T) *persistence.Repo {
	t.Helper()
	db, err := orm.Open(&orm.Config{Driver: orm.DriverSQLite, DSN: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	repo := persistence.New(db)
	require.NoError(t, repo.AutoMigrate(context.Background()))
	return repo
}

// brokenWrites 读正常、写全部失败
type brokenWrites struct {
	*persistence.Repo
}

func (b brokenWrites) UpsertToken(context.Context, *domain.TokenRecord) error { return errDiskFull }

func (b brokenWrites) UpsertTransfer(context.Context, *domain.TransferRecord) (bool, error) {
	return false, errDiskFull
}

func (b brokenWrites) UpsertBanking(context.Context, *domain.BankingRecord) error { return errDiskFull }

func (b brokenWrites) CreateActivity(context.Context, *domain.ActivityRecord) error { return errDiskFull }
