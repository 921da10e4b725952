// Package sqlerr specifically handles database driver errors.
//
// It parses cryptic error codes from the database drivers (pgx, lib/pq,
// go-sqlite3, gorm) and converts them into user-friendly messages
// (e.g., converting a "check violation" into a "Bad Request" error)
package sqlerr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Code is a driver-independent category of database error.
type Code string

const (
	Other                Code = "other"
	NotNullViolation     Code = "not_null_violation"
	CheckViolation       Code = "check_violation"
	InvalidTextValue     Code = "invalid_text_representation"
	NumericOutOfRange    Code = "numeric_value_out_of_range"
	StringTooLong        Code = "string_data_right_truncation"
	UndefinedTable       Code = "undefined_table"
	UndefinedColumn      Code = "undefined_column"
	TooManyConnections   Code = "too_many_connections"
	SerializationFailure Code = "serialization_failure"
	DeadlockDetected     Code = "deadlock_detected"
	Busy                 Code = "busy"
)

// Severity mirrors the PostgreSQL severity levels.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityFatal   Severity = "FATAL"
	SeverityPanic   Severity = "PANIC"
	SeverityWarning Severity = "WARNING"
	SeverityNotice  Severity = "NOTICE"
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityLog     Severity = "LOG"
)

// Error is a database error normalized across drivers.
type Error struct {
	Code           Code
	Severity       Severity
	DatabaseCode   string
	Message        string
	SchemaName     string
	TableName      string
	ColumnName     string
	DataTypeName   string
	ConstraintName string
	driverErr      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Severity, e.Message, e.DatabaseCode)
}

// Unwrap exposes the original driver error.
func (e *Error) Unwrap() error {
	return e.driverErr
}

// pgCodes maps the SQLSTATE codes the catalog can hit to categories.
// The products table has no keys besides its serial id, so unique and
// foreign key violations are left as Other.
var pgCodes = map[string]Code{
	"23502": NotNullViolation,
	"23514": CheckViolation,
	"22P02": InvalidTextValue,
	"22003": NumericOutOfRange,
	"22001": StringTooLong,
	"42P01": UndefinedTable,
	"42703": UndefinedColumn,
	"53300": TooManyConnections,
	"40001": SerializationFailure,
	"40P01": DeadlockDetected,
}

// MapCode maps a PostgreSQL SQLSTATE to a Code.
func MapCode(sqlState string) Code {
	if code, ok := pgCodes[sqlState]; ok {
		return code
	}
	return Other
}

// MapSeverity maps a PostgreSQL severity string to a Severity.
// Unknown values are treated as errors.
func MapSeverity(severity string) Severity {
	switch s := Severity(strings.ToUpper(severity)); s {
	case SeverityError, SeverityFatal, SeverityPanic, SeverityWarning,
		SeverityNotice, SeverityDebug, SeverityInfo, SeverityLog:
		return s
	}
	return SeverityError
}

// ConvertPqError converts a lib/pq error (sqlx over postgres) into Error.
func ConvertPqError(src *pq.Error) *Error {
	return &Error{
		Code:           MapCode(string(src.Code)),
		Severity:       MapSeverity(src.Severity),
		DatabaseCode:   string(src.Code),
		Message:        src.Message,
		SchemaName:     src.Schema,
		TableName:      src.Table,
		ColumnName:     src.Column,
		DataTypeName:   src.DataTypeName,
		ConstraintName: src.Constraint,
		driverErr:      src,
	}
}

// sqliteConstraintTarget matches "NOT NULL constraint failed: products.name".
var sqliteConstraintTarget = regexp.MustCompile(`constraint failed: (\w+)\.(\w+)`)

// ConvertSQLiteError converts a go-sqlite3 error into Error.
//
// sqlite reports the table and column only inside the message text; they are
// extracted from it when present.
func ConvertSQLiteError(src sqlite3.Error) *Error {
	sqlErr := &Error{
		Code:         Other,
		Severity:     SeverityError,
		DatabaseCode: fmt.Sprintf("%d", int(src.ExtendedCode)),
		Message:      src.Error(),
		driverErr:    src,
	}

	switch src.ExtendedCode {
	case sqlite3.ErrConstraintNotNull:
		sqlErr.Code = NotNullViolation
	case sqlite3.ErrConstraintCheck:
		sqlErr.Code = CheckViolation
	default:
		if src.Code == sqlite3.ErrBusy || src.Code == sqlite3.ErrLocked {
			sqlErr.Code = Busy
		}
	}

	if m := sqliteConstraintTarget.FindStringSubmatch(src.Error()); len(m) == 3 {
		sqlErr.TableName = m[1]
		sqlErr.ColumnName = m[2]
	}

	return sqlErr
}
