package utils

import "errors"

var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrLockNotObtained  = errors.New("resource is busy, try again")
)
