package custom_error

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		exists  bool
		absent  bool
		codeOut string
	}{
		{"duplicate constraint", &pq.Error{Code: CodeDuplicateObject}, true, false, CodeDuplicateObject},
		{"duplicate table", &pq.Error{Code: CodeDuplicateTable}, true, false, CodeDuplicateTable},
		{"duplicate column wrapped", fmt.Errorf("add column: %w", &pq.Error{Code: CodeDuplicateColumn}), true, false, CodeDuplicateColumn},
		{"missing column", &pq.Error{Code: CodeUndefinedColumn}, false, true, CodeUndefinedColumn},
		{"missing constraint", &pq.Error{Code: CodeUndefinedObject}, false, true, CodeUndefinedObject},
		{"missing table", &pq.Error{Code: CodeUndefinedTable}, false, true, CodeUndefinedTable},
		{"unique violation", &pq.Error{Code: CodeUniqueViolation}, false, false, CodeUniqueViolation},
		{"plain error", errors.New("connection refused"), false, false, ""},
		{"nil", nil, false, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.exists, IsAlreadyExists(tt.err))
			assert.Equal(t, tt.absent, IsAlreadyAbsent(tt.err))
			assert.Equal(t, tt.codeOut, Code(tt.err))
		})
	}
}

func TestWrapDBError(t *testing.T) {
	var unique *UniqueViolationError
	assert.True(t, errors.As(WrapDBError("duplicate owner", CodeUniqueViolation), &unique))

	var fk *ForeignKeyViolationError
	assert.True(t, errors.As(WrapDBError("location", CodeForeignKeyViolation), &fk))
	assert.Contains(t, fk.Error(), "23503")

	assert.Contains(t, WrapDBError("boom", "XX000").Error(), "uncategorized")
}
