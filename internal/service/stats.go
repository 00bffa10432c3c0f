package service

import (
	"context"
	"strconv"
	"time"

	"docshare/internal/core/cache"
	"docshare/internal/domain"
)

// Stats 只读统计，经缓存读取，允许短暂滞后
type Stats struct {
	Deps
	Cache cache.Store
	TTL   time.Duration
}

func NewStats(d Deps, c cache.Store, ttl time.Duration) *Stats {
	d = d.withDefaults()
	if ttl <= 0 {
		ttl = time.Minute
	}
	if c == nil {
		c = cache.NewLocal(256, ttl)
	}
	return &Stats{Deps: d, Cache: c, TTL: ttl}
}

type Overview struct {
	Users        int64            `json:"users"`
	Files        int64            `json:"files"`
	ByStatus     map[string]int64 `json:"byStatus"`
	AuditRecords int64            `json:"auditRecords"`
	TodayUploads int64            `json:"todayUploads"`
	GeneratedAt  time.Time        `json:"generatedAt"`
}

func (s *Stats) Overview(ctx context.Context) (*Overview, error) {
	return cache.GetOrLoadJSON(s.Cache, ctx, cache.Key("stats", "overview"), s.TTL, func(ctx context.Context) (*Overview, error) {
		r := s.UoW.Query()
		users, err := r.Users.Count(ctx)
		if err != nil {
			return nil, err
		}
		by, err := r.Files.CountByStatus(ctx)
		if err != nil {
			return nil, err
		}
		ledger, err := r.Ledger.Count(ctx)
		if err != nil {
			return nil, err
		}
		now := s.Now()
		y, m, d := now.Date()
		today, err := r.Files.CountSince(ctx, time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
		if err != nil {
			return nil, err
		}

		o := &Overview{Users: users, AuditRecords: ledger, TodayUploads: today, GeneratedAt: now}
		o.ByStatus = make(map[string]int64, len(by))
		for _, st := range domain.AllFileStatuses() {
			if !st.Stored() {
				continue
			}
			o.ByStatus[st.String()] = by[st]
			o.Files += by[st]
		}
		return o, nil
	})
}

// Auditors 按操作人统计通过/拒绝/封禁次数
func (s *Stats) Auditors(ctx context.Context) ([]domain.ActorStat, error) {
	return cache.GetOrLoadList(s.Cache, ctx, cache.Key("stats", "auditors"), s.TTL, s.UoW.Query().Ledger.ActorStats)
}

func (s *Stats) HotFiles(ctx context.Context, limit int) ([]domain.File, error) {
	return cache.GetOrLoadList(s.Cache, ctx, cache.Key("stats", "hot_files", strconv.Itoa(limit)), s.TTL, func(ctx context.Context) ([]domain.File, error) {
		return s.UoW.Query().Files.Hot(ctx, limit)
	})
}

func (s *Stats) HotTags(ctx context.Context, limit int) ([]domain.Tag, error) {
	return cache.GetOrLoadList(s.Cache, ctx, cache.Key("stats", "hot_tags", strconv.Itoa(limit)), s.TTL, func(ctx context.Context) ([]domain.Tag, error) {
		return s.UoW.Query().Tags.Hot(ctx, limit)
	})
}
