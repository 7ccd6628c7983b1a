package domain

import "errors"

var (
	ErrStorageFailure   = errors.New("storage_failure")
	ErrProductNotFound  = errors.New("product_not_found")
	ErrInvalidProductID = errors.New("invalid_product_id")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidSource    = errors.New("invalid_source")
	ErrInvalidPrice     = errors.New("invalid_price")
	ErrLockUnavailable  = errors.New("lock_unavailable")
)
