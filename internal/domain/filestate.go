package domain

// FileAction 文件状态机上的动作
type FileAction string

const (
	FileApprove FileAction = "approve"
	FileReject  FileAction = "reject"
	FileBan     FileAction = "ban"
	FileUnban   FileAction = "unban"
	FileDelete  FileAction = "delete"
)

type fileEdge struct {
	from   []FileStatus
	to     FileStatus
	remark string
}

// 合法边；delete 从任意已存储状态出发
var fileEdges = map[FileAction]fileEdge{
	FileApprove: {from: []FileStatus{FilePending}, to: FileApproved, remark: "审核通过"},
	FileReject:  {from: []FileStatus{FilePending}, to: FileRejected, remark: "审核拒绝"},
	FileBan:     {from: []FileStatus{FileApproved}, to: FileBanned, remark: "文件封禁"},
	FileUnban:   {from: []FileStatus{FileBanned}, to: FileApproved, remark: "文件解封"},
	FileDelete: {
		from:   []FileStatus{FilePending, FileApproved, FileRejected, FileBanned},
		to:     FileDeleted,
		remark: "文件删除",
	},
}

func AllFileActions() []FileAction {
	return []FileAction{FileApprove, FileReject, FileBan, FileUnban, FileDelete}
}

// NextFileStatus 校验 cur 是否允许 a，返回目标状态；不允许时返回 ConflictError
func NextFileStatus(cur FileStatus, a FileAction) (FileStatus, error) {
	e, ok := fileEdges[a]
	if !ok {
		return cur, Validation("unknown file action %q", string(a))
	}
	for _, f := range e.from {
		if f == cur {
			return e.to, nil
		}
	}
	return cur, Conflict("status", cur)
}

// DefaultRemark 未填写备注时使用
func (a FileAction) DefaultRemark() string { return fileEdges[a].remark }

// 状态对 → 操作类型
var fileOps = map[[2]FileStatus]OperationType{
	{FilePending, FileApproved}: OpFileApprove,
	{FilePending, FileRejected}: OpFileReject,
	{FileApproved, FileBanned}:  OpFileBan,
	{FileBanned, FileApproved}:  OpFileUnban,
}

// OperationFor 由 (old, new) 推断操作类型；未知组合返回 OpUnknown, false。
// 删除不走这张表，固定为 OpFileDelete
func OperationFor(old, next FileStatus) (OperationType, bool) {
	if next == FileDeleted && old.Stored() {
		return OpFileDelete, true
	}
	op, ok := fileOps[[2]FileStatus{old, next}]
	if !ok {
		return OpUnknown, false
	}
	return op, true
}

// UploadAction 用户上传权限状态机
type UploadAction string

const (
	UploadBan   UploadAction = "ban-upload"
	UploadUnban UploadAction = "unban-upload"
)

// NextUploadStatus 重复封禁/解封返回 ConflictError
func NextUploadStatus(cur UploadStatus, a UploadAction) (UploadStatus, OperationType, error) {
	switch a {
	case UploadBan:
		if cur != UploadNormal {
			return cur, OpUnknown, Conflict("upload status", cur)
		}
		return UploadBanned, OpUserBanUpload, nil
	case UploadUnban:
		if cur != UploadBanned {
			return cur, OpUnknown, Conflict("upload status", cur)
		}
		return UploadNormal, OpUserUnbanUpload, nil
	}
	return cur, OpUnknown, Validation("unknown upload action %q", string(a))
}

func (a UploadAction) DefaultRemark() string {
	if a == UploadBan {
		return "封禁上传权限"
	}
	return "解封上传权限"
}
