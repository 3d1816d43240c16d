package custom_error

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes the schema engine and the CRUD layer care about.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeCheckViolation      = "23514"
	CodeNotNullViolation    = "23502"
	CodeDuplicateObject     = "42710"
	CodeDuplicateTable      = "42P07"
	CodeDuplicateColumn     = "42701"
	CodeUndefinedColumn     = "42703"
	CodeUndefinedObject     = "42704"
	CodeUndefinedTable      = "42P01"
)

type CustomError interface {
	Error() string
}

type UniqueViolationError struct {
	message string
	code    string
}

type ForeignKeyViolationError struct {
	message string
	code    string
}

func (f *ForeignKeyViolationError) Error() string {
	return fmt.Sprintf("%s (code: %s)", f.message, f.code)
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("%s (code: %s)", e.message, e.code)
}

func WrapDBError(message, code string) CustomError {
	switch code {
	case CodeUniqueViolation:
		return &UniqueViolationError{
			message: message,
			code:    code,
		}
	case CodeForeignKeyViolation:
		return &ForeignKeyViolationError{
			message: "Value is already used by other resources " + message,
			code:    code,
		}
	default:
		return fmt.Errorf("uncategorized error occurred with code %s: %s", code, message)
	}
}

// Code returns the SQLSTATE carried by err, or an empty string when err did not
// come from the server.
func Code(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsAlreadyExists reports whether err means the object being created is
// already there.
func IsAlreadyExists(err error) bool {
	switch Code(err) {
	case CodeDuplicateObject, CodeDuplicateTable, CodeDuplicateColumn:
		return true
	}
	return false
}

// IsAlreadyAbsent reports whether err means the object being removed does not
// exist any more.
func IsAlreadyAbsent(err error) bool {
	switch Code(err) {
	case CodeUndefinedColumn, CodeUndefinedObject, CodeUndefinedTable:
		return true
	}
	return false
}
