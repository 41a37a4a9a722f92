package vehicle

import (
	"strings"

	"gorm.io/gorm"
)

// Filters 描述车辆列表的可选过滤条件。nil 指针表示未指定。
type Filters struct {
	Category string
	MinPrice *int64
	MaxPrice *int64
	MinYear  *int
	MaxYear  *int
	Page     int
	PageSize int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (f *Filters) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
}

// predicateBuilder 收集 AND 连接的条件子句和与之平行的参数序列。
// 一次性应用，子句与参数不会因为拼接顺序而错位。
type predicateBuilder struct {
	clauses []string
	args    []any
}

func (b *predicateBuilder) add(clause string, args ...any) {
	b.clauses = append(b.clauses, clause)
	b.args = append(b.args, args...)
}

func (b *predicateBuilder) apply(tx *gorm.DB) *gorm.DB {
	if len(b.clauses) == 0 {
		return tx
	}
	return tx.Where(strings.Join(b.clauses, " AND "), b.args...)
}
