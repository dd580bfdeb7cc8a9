package repository

import "errors"

var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("not found")
	// ErrNotDeletable запись защищена от удаления
	ErrNotDeletable = errors.New("not deletable")
)
