package persistence

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/chandraveer04/token-browser/internal/domain"
)

type Repo struct {
	db *gorm.DB

	// 同一 key 的写入串行化，保证 LastUpdated 顺序和落库顺序一致
	stripes [64]sync.Mutex
	clockMu sync.Mutex
	last    time.Time
}

func New(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// 确保 Repo 实现了所有接口
var (
	_ domain.TokenCache    = (*Repo)(nil)
	_ domain.TransferCache = (*Repo)(nil)
	_ domain.BankingStore  = (*Repo)(nil)
	_ domain.ActivityStore = (*Repo)(nil)
)

// Models 需要迁移的表
func Models() []interface{} {
	return []interface{}{
		&domain.TokenRecord{},
		&domain.TransferRecord{},
		&domain.BankingRecord{},
		&domain.ActivityRecord{},
	}
}

func (r *Repo) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(Models()...)
}

// conn 每条记录单独写入，一条失败不影响其它记录
func (r *Repo) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// lockKey 按 key 取条带锁
func (r *Repo) lockKey(parts ...string) func() {
	h := fnv.New32a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	mu := &r.stripes[h.Sum32()%uint32(len(r.stripes))]
	mu.Lock()
	return mu.Unlock
}

// stamp 单调递增的写入时间（微秒精度，MySQL datetime(6) 能存下）
func (r *Repo) stamp() time.Time {
	r.clockMu.Lock()
	defer r.clockMu.Unlock()
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(r.last) {
		now = r.last.Add(time.Microsecond)
	}
	r.last = now
	return now
}
