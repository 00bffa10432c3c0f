// Package service 业务层：无状态，依赖全部显式注入
package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"docshare/internal/core/logger"
	"docshare/internal/domain"
	"docshare/internal/event"
	"docshare/internal/storage"
)

// Deps 各服务共享的依赖
type Deps struct {
	UoW          domain.UnitOfWork
	Blobs        storage.BlobStore
	Events       event.Publisher
	Log          *zap.Logger
	Now          func() time.Time
	RemarkMaxLen int
}

func (d Deps) withDefaults() Deps {
	if d.Events == nil {
		d.Events = event.Noop{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.RemarkMaxLen <= 0 {
		d.RemarkMaxLen = 255
	}
	return d
}

var (
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "moderation_transitions_total", Help: "Committed moderation transitions"},
		[]string{"subject", "operation"},
	)
	unknownOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "moderation_unknown_operation_total", Help: "Transitions whose operation type could not be classified"},
		[]string{"old", "new"},
	)
	deniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "moderation_denied_total", Help: "Moderation calls rejected by kind"},
		[]string{"action", "kind"},
	)
)

func init() { prometheus.MustRegister(transitionsTotal, unknownOpsTotal, deniedTotal) }

// normalizeRemark 去空白，空则用默认备注
func (d Deps) normalizeRemark(remark, fallback string) (string, error) {
	remark = strings.TrimSpace(remark)
	if !utf8.ValidString(remark) {
		return "", domain.Validation("remark is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(remark); n > d.RemarkMaxLen {
		return "", domain.Validation("remark too long: %d > %d", n, d.RemarkMaxLen)
	}
	if remark == "" {
		return fallback, nil
	}
	return remark, nil
}

// loadActor 在工作单元内重新读取操作人的角色，不信任令牌里的角色
func loadActor(ctx context.Context, r domain.Repos, a domain.Actor) (domain.Actor, error) {
	u, err := r.Users.FindByID(ctx, a.ID)
	if err != nil {
		return domain.Actor{}, err
	}
	if u == nil {
		return domain.Actor{}, domain.Forbidden("actor %d does not exist", a.ID)
	}
	return u.Actor(), nil
}

// publish 事务提交后投递；失败只记日志
func (d Deps) publish(ctx context.Context, recs ...*domain.AuditRecord) {
	if len(recs) == 0 {
		return
	}
	rid := logger.RequestID(ctx)
	evs := make([]event.Event, 0, len(recs))
	for _, r := range recs {
		transitionsTotal.WithLabelValues(string(r.SubjectType), r.OperationType.String()).Inc()
		d.Log.Info("moderation",
			zap.String("subject", string(r.SubjectType)),
			zap.Uint64("subject_id", r.SubjectID),
			zap.Uint64("actor_id", r.ActorID),
			zap.Stringer("op", r.OperationType),
			zap.String("old", r.OldValue),
			zap.String("new", r.NewValue),
			zap.String("rid", rid),
		)
		ev := event.FromRecord(r)
		ev.RequestID = rid
		evs = append(evs, ev)
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := d.Events.Publish(pctx, evs...); err != nil {
		d.Log.Warn("publish moderation events failed", zap.Int("events", len(evs)), zap.Error(err))
	}
}

// removeBlobs 提交后删除文件内容；失败只记日志，等待人工清理
func (d Deps) removeBlobs(ctx context.Context, keys []string) {
	if d.Blobs == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, k := range keys {
		if k == "" {
			continue
		}
		if err := d.Blobs.Delete(ctx, k); err != nil {
			d.Log.Warn("delete blob failed", zap.String("key", k), zap.Error(err))
		}
	}
}

func countDenied(action string, err error) {
	for _, k := range []struct {
		kind error
		name string
	}{
		{domain.ErrNotFound, "not_found"},
		{domain.ErrForbidden, "forbidden"},
		{domain.ErrConflict, "conflict"},
		{domain.ErrValidation, "validation"},
		{domain.ErrStorage, "storage"},
	} {
		if errors.Is(err, k.kind) {
			deniedTotal.WithLabelValues(action, k.name).Inc()
			return
		}
	}
}
