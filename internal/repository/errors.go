package repository

import "errors"

// ErrInUse indicates a row cannot be removed because other rows reference it.
var ErrInUse = errors.New("record is still referenced")

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
