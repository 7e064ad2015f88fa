package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate reports a unique constraint violation.
	ErrDuplicate = errors.New("duplicate row")
	// ErrForeignKey reports a foreign key violation.
	ErrForeignKey = errors.New("foreign key violation")
	// ErrUnexpectedRowCount reports a write that did not touch exactly one row.
	ErrUnexpectedRowCount = errors.New("unexpected affected row count")
)

// IsNotFound reports whether err is gorm's record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// classify maps driver errors onto ErrDuplicate and ErrForeignKey. Postgres
// errors carry SQLSTATE codes; sqlite only exposes message text.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %w", ErrForeignKey, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %w", ErrDuplicate, err)
		case "23503":
			return fmt.Errorf("%w: %w", ErrForeignKey, err)
		}
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"), strings.Contains(msg, "duplicate key"):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	case strings.Contains(msg, "foreign key constraint failed"):
		return fmt.Errorf("%w: %w", ErrForeignKey, err)
	}
	return err
}

// expectOne turns a write result into an error unless it affected exactly one row.
func expectOne(res *gorm.DB) error {
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("%w: got %d", ErrUnexpectedRowCount, res.RowsAffected)
	}
	return nil
}
