package handler

import (
	"strconv"
	"strings"

	"docshare/internal/transport/http/ez"
)

// pageQ 通用分页参数
type pageQ struct {
	Offset int `form:"offset,default=0"`
	Limit  int `form:"limit,default=20"`
}

type remarkIn struct {
	Remark string `json:"remark"`
}

// parseIDs "1,2,3" 形式的 ID 列表
func parseIDs(s string) ([]uint64, error) {
	var out []uint64
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, ez.BadRequest("invalid id list")
		}
		out = append(out, v)
	}
	return out, nil
}
