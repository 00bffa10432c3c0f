package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FileStatus 文件审核状态。FileDeleted 只出现在审计记录中，不会落在文件行上
type FileStatus int8

const (
	FilePending  FileStatus = 0
	FileApproved FileStatus = 1
	FileRejected FileStatus = 2
	FileDeleted  FileStatus = 3
	FileBanned   FileStatus = 4
)

var fileStatusNames = map[FileStatus]string{
	FilePending:  "PENDING",
	FileApproved: "APPROVED",
	FileRejected: "REJECTED",
	FileDeleted:  "DELETED",
	FileBanned:   "BANNED",
}

func AllFileStatuses() []FileStatus {
	return []FileStatus{FilePending, FileApproved, FileRejected, FileDeleted, FileBanned}
}

func (s FileStatus) String() string {
	if n, ok := fileStatusNames[s]; ok {
		return n
	}
	return "FileStatus(" + strconv.Itoa(int(s)) + ")"
}

func (s FileStatus) Valid() bool {
	_, ok := fileStatusNames[s]
	return ok
}

// Stored 可以持久化在文件行上的状态
func (s FileStatus) Stored() bool { return s.Valid() && s != FileDeleted }

func ParseFileStatus(v string) (FileStatus, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil && FileStatus(n).Valid() {
		return FileStatus(n), nil
	}
	up := strings.ToUpper(v)
	for s, n := range fileStatusNames {
		if n == up {
			return s, nil
		}
	}
	return 0, Validation("invalid file status %q", v)
}

func (s FileStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal file status: %d", int8(s))
	}
	return []byte(s.String()), nil
}

func (s *FileStatus) UnmarshalText(b []byte) error {
	v, err := ParseFileStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// FileType 文件大类
type FileType string

const (
	FileTypeDocument FileType = "document"
	FileTypeImage    FileType = "image"
)

var fileExtTypes = map[string]FileType{
	"pdf":  FileTypeDocument,
	"epub": FileTypeDocument,
	"mobi": FileTypeDocument,
	"jpg":  FileTypeImage,
	"jpeg": FileTypeImage,
	"png":  FileTypeImage,
	"gif":  FileTypeImage,
}

// FileTypeOf 按扩展名识别，不支持的扩展名返回 false
func FileTypeOf(ext string) (FileType, bool) {
	t, ok := fileExtTypes[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return t, ok
}

type File struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID       uint64     `gorm:"index;not null" json:"ownerId"`
	CategoryID    uint64     `gorm:"index;not null" json:"categoryId"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Description   string     `gorm:"size:2000" json:"description"`
	FileName      string     `gorm:"size:255" json:"fileName"`
	FileExt       string     `gorm:"size:16" json:"fileExt"`
	FileType      FileType   `gorm:"size:16" json:"fileType"`
	FileSize      int64      `json:"fileSize"`
	StorageKey    string     `gorm:"size:255" json:"-"`
	CoverKey      string     `gorm:"size:255" json:"coverKey,omitempty"`
	AuditStatus   FileStatus `gorm:"index;not null" json:"auditStatus"`
	AuditUserID   *uint64    `json:"auditUserId,omitempty"`
	AuditTime     *time.Time `json:"auditTime,omitempty"`
	AuditRemark   string     `gorm:"size:255" json:"auditRemark,omitempty"`
	ViewCount     int64      `gorm:"not null" json:"viewCount"`
	DownloadCount int64      `gorm:"not null" json:"downloadCount"`
	LikeCount     int64      `gorm:"not null" json:"likeCount"`
	CreatedAt     time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`

	TagIDs []uint64 `gorm:"-" json:"tagIds,omitempty"`
}

// FileMeta 文件所有者可编辑的非状态字段；nil 表示不修改
type FileMeta struct {
	Title       *string
	Description *string
	CoverKey    *string
	CategoryID  *uint64
}

type Category struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	ParentID    *uint64   `gorm:"index" json:"parentId,omitempty"`
	SortOrder   int       `json:"sortOrder"`
	Enabled     bool      `gorm:"not null" json:"enabled"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Tag struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	Enabled     bool      `gorm:"not null" json:"enabled"`
	UsageCount  int64     `gorm:"not null" json:"usageCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type FileTag struct {
	FileID uint64 `gorm:"primaryKey;autoIncrement:false"`
	TagID  uint64 `gorm:"primaryKey;autoIncrement:false;index"`
}

// FileLike (user, file) 唯一
type FileLike struct {
	UserID    uint64 `gorm:"primaryKey;autoIncrement:false"`
	FileID    uint64 `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time
}
