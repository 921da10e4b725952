package sqlerr

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/deppfellow/go-catalog/internal/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// ErrCode returns the Code of the database error carried by err, or Other.
func ErrCode(err error) Code {
	var sqlErr *Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code
	}
	if sqlErr := driverError(err); sqlErr != nil {
		return sqlErr.Code
	}
	return Other
}

// ConvertPgError converts a pgx error into Error.
func ConvertPgError(src *pgconn.PgError) *Error {
	return &Error{
		Code:           MapCode(src.Code),
		Severity:       MapSeverity(src.Severity),
		DatabaseCode:   src.Code,
		Message:        src.Message,
		SchemaName:     src.SchemaName,
		TableName:      src.TableName,
		ColumnName:     src.ColumnName,
		DataTypeName:   src.DataTypeName,
		ConstraintName: src.ConstraintName,
		driverErr:      src,
	}
}

// driverError finds a pgx, lib/pq or go-sqlite3 error in err's chain and
// normalizes it. It returns nil when there is none.
func driverError(err error) *Error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return ConvertPgError(pgErr)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return ConvertPqError(pqErr)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return ConvertSQLiteError(liteErr)
	}

	return nil
}

// entity returns the singular resource name of a table: "products" -> "product".
func entity(table string) string {
	if table == "" {
		return "record"
	}
	if len(table) > 1 {
		table = strings.TrimSuffix(table, "s")
	}
	return table
}

// errorCode builds the client-facing code, e.g. PRODUCT_INVALID.
func errorCode(table string, code Code) string {
	suffix := "INVALID"
	if code == NotNullViolation {
		suffix = "REQUIRED"
	}
	return strings.ToUpper(entity(table)) + "_" + suffix
}

// humanize turns "stock_quantity" into "Stock Quantity".
// A Caser holds state, so each call builds its own.
func humanize(name string) string {
	if name == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

// message is the text shown to API clients. It never includes driver detail.
func message(sqlErr *Error) string {
	column := humanize(sqlErr.ColumnName)

	switch sqlErr.Code {
	case NotNullViolation:
		if column == "" {
			column = "field"
		}
		return fmt.Sprintf("The %s is required", column)
	case CheckViolation:
		if column == "" {
			return "One or more values do not meet required conditions"
		}
		return fmt.Sprintf("The %s value does not meet required conditions", column)
	default:
		if column == "" {
			return "One or more values are invalid"
		}
		return fmt.Sprintf("The %s value is invalid", column)
	}
}

// HandleError converts a store error into the *errs.HTTPError sent to the client.
//
//   - *errs.HTTPError passes through unchanged.
//   - Not-null, check and data errors from postgres or sqlite become 400s.
//   - pgx.ErrNoRows, sql.ErrNoRows and gorm.ErrRecordNotFound become 404s.
//   - Anything else is a 500 with a generic message.
func HandleError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	if sqlErr := driverError(err); sqlErr != nil {
		switch sqlErr.Code {
		case NotNullViolation:
			code := errorCode(sqlErr.TableName, sqlErr.Code)
			fieldErrors := []errs.FieldError{{
				Field: strings.ToLower(sqlErr.ColumnName),
				Error: "is required",
			}}
			return errs.NewBadRequestError(message(sqlErr), true, &code, fieldErrors, nil)
		case CheckViolation, InvalidTextValue, NumericOutOfRange, StringTooLong:
			code := errorCode(sqlErr.TableName, sqlErr.Code)
			return errs.NewBadRequestError(message(sqlErr), true, &code, nil, nil)
		}
		// Busy, deadlocks and everything else are server faults.
		return errs.NewInternalServerError()
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) || errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NewNotFoundError("Resource not found", false, nil)
	}

	return errs.NewInternalServerError()
}
