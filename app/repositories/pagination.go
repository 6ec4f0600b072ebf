package repositories

import "gorm.io/gorm"

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// paginate applies page/limit to q and fills meta from the total row count.
func paginate(q *gorm.DB, page, limit int, dest interface{}) (Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return Pagination{}, err
	}

	if err := q.Offset((page - 1) * limit).Limit(limit).Find(dest).Error; err != nil {
		return Pagination{}, err
	}

	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}

	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}, nil
}
