// Package types 定义服务间共享的类型
package types

// Page 分页结果
type Page[T any] struct {
	Records  []T   `json:"records"`
	Total    int64 `json:"totalRow"`
	PageNum  int   `json:"pageNumber"`
	PageSize int   `json:"pageSize"`
}

// PageRequest 分页参数
type PageRequest struct {
	PageNum  int `json:"pageNum" form:"pageNum"`
	PageSize int `json:"pageSize" form:"pageSize"`
}

// Normalize 修正页码与页大小，maxSize > 0 时限制页大小
func (p PageRequest) Normalize(defaultSize, maxSize int) PageRequest {
	if p.PageNum <= 0 {
		p.PageNum = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultSize
	}
	if maxSize > 0 && p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	return p
}

// Offset 偏移量
func (p PageRequest) Offset() int {
	return (p.PageNum - 1) * p.PageSize
}
