package service

// Pagination 列表接口统一分页契约
// 入参约束 page>=1、limit 1..100（默认20）；出参带总数和总页数
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// NormalizePage 把任意入参收敛到契约范围内
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

// NewPagination 计算分页出参，totalPages = ceil(total/limit)
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
