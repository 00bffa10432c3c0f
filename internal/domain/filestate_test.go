package domain

import (
	"errors"
	"testing"
)

func TestNextFileStatus(t *testing.T) {
	legal := map[FileAction]map[FileStatus]FileStatus{
		FileApprove: {FilePending: FileApproved},
		FileReject:  {FilePending: FileRejected},
		FileBan:     {FileApproved: FileBanned},
		FileUnban:   {FileBanned: FileApproved},
		FileDelete: {
			FilePending:  FileDeleted,
			FileApproved: FileDeleted,
			FileRejected: FileDeleted,
			FileBanned:   FileDeleted,
		},
	}

	for _, a := range AllFileActions() {
		for _, cur := range AllFileStatuses() {
			want, ok := legal[a][cur]
			got, err := NextFileStatus(cur, a)
			if ok {
				if err != nil {
					t.Errorf("%s from %s: unexpected error %v", a, cur, err)
					continue
				}
				if got != want {
					t.Errorf("%s from %s = %s, want %s", a, cur, got, want)
				}
				continue
			}
			if !errors.Is(err, ErrConflict) {
				t.Errorf("%s from %s: want conflict, got %v", a, cur, err)
				continue
			}
			if CurrentOf(err) != cur.String() {
				t.Errorf("%s from %s: conflict current = %q", a, cur, CurrentOf(err))
			}
		}
	}
}

func TestNextFileStatus_ConflictMessage(t *testing.T) {
	_, err := NextFileStatus(FileApproved, FileApprove)
	if err == nil || err.Error() != "current status APPROVED" {
		t.Fatalf("got %v", err)
	}
}

func TestNextFileStatus_UnknownAction(t *testing.T) {
	if _, err := NextFileStatus(FilePending, FileAction("publish")); !errors.Is(err, ErrValidation) {
		t.Fatalf("want validation, got %v", err)
	}
}

func TestOperationFor(t *testing.T) {
	tests := []struct {
		old, next FileStatus
		want      OperationType
		known     bool
	}{
		{FilePending, FileApproved, OpFileApprove, true},
		{FilePending, FileRejected, OpFileReject, true},
		{FileApproved, FileBanned, OpFileBan, true},
		{FileBanned, FileApproved, OpFileUnban, true},
		{FileBanned, FileDeleted, OpFileDelete, true},
		{FileRejected, FileApproved, OpUnknown, false},
		{FilePending, FileBanned, OpUnknown, false},
		{FileDeleted, FileDeleted, OpUnknown, false},
	}
	for _, tt := range tests {
		got, ok := OperationFor(tt.old, tt.next)
		if got != tt.want || ok != tt.known {
			t.Errorf("OperationFor(%s,%s) = %s,%v want %s,%v", tt.old, tt.next, got, ok, tt.want, tt.known)
		}
	}
}

// 每条合法边都能推断出已知的操作类型
func TestEveryEdgeHasOperation(t *testing.T) {
	for _, a := range AllFileActions() {
		for _, cur := range AllFileStatuses() {
			next, err := NextFileStatus(cur, a)
			if err != nil {
				continue
			}
			if _, ok := OperationFor(cur, next); !ok {
				t.Errorf("edge %s --%s--> %s has no operation type", cur, a, next)
			}
		}
		if a.DefaultRemark() == "" {
			t.Errorf("action %s has no default remark", a)
		}
	}
}

func TestNextUploadStatus(t *testing.T) {
	tests := []struct {
		cur      UploadStatus
		a        UploadAction
		want     UploadStatus
		op       OperationType
		conflict bool
	}{
		{UploadNormal, UploadBan, UploadBanned, OpUserBanUpload, false},
		{UploadBanned, UploadUnban, UploadNormal, OpUserUnbanUpload, false},
		{UploadBanned, UploadBan, UploadBanned, OpUnknown, true},
		{UploadNormal, UploadUnban, UploadNormal, OpUnknown, true},
	}
	for _, tt := range tests {
		got, op, err := NextUploadStatus(tt.cur, tt.a)
		if tt.conflict {
			if !errors.Is(err, ErrConflict) {
				t.Errorf("%s from %s: want conflict, got %v", tt.a, tt.cur, err)
			}
			continue
		}
		if err != nil || got != tt.want || op != tt.op {
			t.Errorf("%s from %s = %s,%s,%v", tt.a, tt.cur, got, op, err)
		}
	}
	_, _, err := NextUploadStatus(UploadBanned, UploadBan)
	if err.Error() != "current upload status BANNED" {
		t.Errorf("message = %q", err.Error())
	}
}
