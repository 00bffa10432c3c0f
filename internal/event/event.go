// Package event 审核事件投递。事件在事务提交后发出，投递失败只记日志
package event

import (
	"context"
	"sync"
	"time"

	"docshare/internal/domain"
)

type Event struct {
	Operation   domain.OperationType `json:"operation"`
	SubjectType domain.SubjectType   `json:"subjectType"`
	SubjectID   uint64               `json:"subjectId"`
	ActorID     uint64               `json:"actorId"`
	OldValue    string               `json:"oldValue"`
	NewValue    string               `json:"newValue"`
	Remark      string               `json:"remark"`
	At          time.Time            `json:"at"`
	RequestID   string               `json:"requestId,omitempty"`
}

// FromRecord 由审计记录构造事件
func FromRecord(r *domain.AuditRecord) Event {
	return Event{
		Operation:   r.OperationType,
		SubjectType: r.SubjectType,
		SubjectID:   r.SubjectID,
		ActorID:     r.ActorID,
		OldValue:    r.OldValue,
		NewValue:    r.NewValue,
		Remark:      r.Remark,
		At:          r.CreatedAt,
	}
}

type Publisher interface {
	Publish(ctx context.Context, evs ...Event) error
	Close() error
}

type Noop struct{}

func (Noop) Publish(context.Context, ...Event) error { return nil }
func (Noop) Close() error                            { return nil }

// Memory 保存所有事件，测试与本地调试用
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func (m *Memory) Publish(_ context.Context, evs ...Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evs...)
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
