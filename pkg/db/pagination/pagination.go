// Package pagination carries list-endpoint paging parameters.
package pagination

import "gorm.io/gorm"

const (
	defaultSize = 20
	maxSize     = 100
)

type Params struct {
	Page int `form:"page"`
	Size int `form:"size"`
}

// Normalize clamps the parameters into their valid ranges.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = defaultSize
	}
	if p.Size > maxSize {
		p.Size = maxSize
	}
	return p
}

func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Size
}

func (p Params) Limit() int {
	return p.Normalize().Size
}

// Apply adds the offset/limit clauses to a query.
func (p Params) Apply(db *gorm.DB) *gorm.DB {
	return db.Offset(p.Offset()).Limit(p.Limit())
}

// Meta describes a page of results in list responses.
type Meta struct {
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
}

func NewMeta(p Params, total int64) Meta {
	n := p.Normalize()
	return Meta{Page: n.Page, Size: n.Size, Total: total}
}
