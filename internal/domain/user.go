package domain

import "time"

type User struct {
	ID              uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	Username        string       `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email           string       `gorm:"uniqueIndex;size:191;not null" json:"email"`
	PasswordHash    string       `gorm:"size:191" json:"-"`
	Role            Role         `gorm:"not null" json:"role"`
	UploadStatus    UploadStatus `gorm:"not null" json:"uploadStatus"`
	UploadCount     int64        `gorm:"not null" json:"uploadCount"`
	BannedFileCount int64        `gorm:"not null" json:"bannedFileCount"`
	LastOperatorID  *uint64      `json:"lastOperatorId,omitempty"`
	LastOperatedAt  *time.Time   `json:"lastOperatedAt,omitempty"`
	LastRemark      string       `gorm:"size:255" json:"lastRemark,omitempty"`
	LastLoginAt     *time.Time   `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// Actor 已认证的调用方
type Actor struct {
	ID   uint64
	Role Role
}

func (u *User) Actor() Actor { return Actor{ID: u.ID, Role: u.Role} }

// Stamp 最近一次转移的操作人/时间/备注
type Stamp struct {
	ActorID uint64
	At      time.Time
	Remark  string
}
