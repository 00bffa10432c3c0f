package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OperationType 审计记录的操作类型，文件与用户两类操作统一编号
type OperationType int16

const (
	OpUnknown         OperationType = 0
	OpFileApprove     OperationType = 1
	OpFileReject      OperationType = 2
	OpUserBanUpload   OperationType = 3
	OpUserRoleChange  OperationType = 4
	OpUserDelete      OperationType = 5
	OpFileBan         OperationType = 6
	OpFileUnban       OperationType = 7
	OpUserUnbanUpload OperationType = 8
	OpFileDelete      OperationType = 9
)

var opNames = map[OperationType]string{
	OpUnknown:         "UNKNOWN",
	OpFileApprove:     "APPROVE",
	OpFileReject:      "REJECT",
	OpUserBanUpload:   "BAN_UPLOAD",
	OpUserRoleChange:  "ROLE_CHANGE",
	OpUserDelete:      "USER_DELETE",
	OpFileBan:         "BAN",
	OpFileUnban:       "UNBAN",
	OpUserUnbanUpload: "UNBAN_UPLOAD",
	OpFileDelete:      "FILE_DELETE",
}

func AllOperationTypes() []OperationType {
	return []OperationType{
		OpUnknown, OpFileApprove, OpFileReject, OpUserBanUpload, OpUserRoleChange,
		OpUserDelete, OpFileBan, OpFileUnban, OpUserUnbanUpload, OpFileDelete,
	}
}

func (o OperationType) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "OperationType(" + strconv.Itoa(int(o)) + ")"
}

func (o OperationType) Valid() bool {
	_, ok := opNames[o]
	return ok
}

func (o OperationType) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("marshal operation type: %d", int16(o))
	}
	return []byte(o.String()), nil
}

func (o *OperationType) UnmarshalText(b []byte) error {
	v := strings.ToUpper(strings.TrimSpace(string(b)))
	for op, n := range opNames {
		if n == v {
			*o = op
			return nil
		}
	}
	return Validation("invalid operation type %q", string(b))
}

type SubjectType string

const (
	SubjectFile SubjectType = "FILE"
	SubjectUser SubjectType = "USER"
)

func (s SubjectType) Valid() bool { return s == SubjectFile || s == SubjectUser }

// AuditRecord 审计台账，写入后不再修改
type AuditRecord struct {
	ID            uint64        `gorm:"primaryKey;autoIncrement" json:"id"`
	SubjectType   SubjectType   `gorm:"size:8;not null;index:idx_audit_subject,priority:1" json:"subjectType"`
	SubjectID     uint64        `gorm:"not null;index:idx_audit_subject,priority:2" json:"subjectId"`
	ActorID       uint64        `gorm:"not null;index" json:"actorId"`
	OldValue      string        `gorm:"size:32" json:"oldValue"`
	NewValue      string        `gorm:"size:32" json:"newValue"`
	OperationType OperationType `gorm:"not null;index" json:"operationType"`
	Remark        string        `gorm:"size:255" json:"remark"`
	CreatedAt     time.Time     `gorm:"not null;index:idx_audit_subject,priority:3" json:"createdAt"`
}

// ActorStat 审核员统计
type ActorStat struct {
	ActorID  uint64 `json:"actorId"`
	Approved int64  `json:"approved"`
	Rejected int64  `json:"rejected"`
	Banned   int64  `json:"banned"`
	Total    int64  `json:"total"`
}
