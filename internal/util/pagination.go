package util

const DefaultPageSize = 10

func Calculate(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = DefaultPageSize
	}
	from = (page - 1) * size
	return from, size
}

func PageMeta(page, limit int, total int64) map[string]any {
	if page < 1 {
		page = 1
	}
	return map[string]any{
		"page":       page,
		"size":       limit,
		"total":      total,
		"totalPages": (total + int64(limit) - 1) / int64(limit),
		"hasPrev":    page > 1,
		"hasNext":    int64(page*limit) < total,
	}
}
