// Package repository implements the booking stores and the restaurant
// catalog on MySQL.  Repositories translate driver errors into the booking
// sentinels so that handlers can classify failures with errors.Is:
// sql.ErrNoRows becomes booking.ErrNotFound, a conditional update that
// matched no row becomes booking.ErrInvalidState, and MySQL constraint
// violations become ErrNotFound (missing parent row) or ErrConflict
// (duplicate key).
package repository

import (
    "database/sql"
    "errors"
    "fmt"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
)

// MySQL server error numbers handled by translate.
const (
    errDupEntry         = 1062
    errNoReferencedRow  = 1452
    errNoReferencedRow2 = 1216
)

// notFound wraps sql.ErrNoRows as booking.ErrNotFound naming the missing
// entity.  Other errors pass through translate.
func notFound(err error, entity string, id uint64) error {
    if errors.Is(err, sql.ErrNoRows) {
        return fmt.Errorf("%w: %s %d", booking.ErrNotFound, entity, id)
    }
    return translate(err)
}

func translate(err error) error {
    var me *mysql.MySQLError
    if !errors.As(err, &me) {
        return err
    }
    switch me.Number {
    case errDupEntry:
        return fmt.Errorf("%w: %s", booking.ErrConflict, me.Message)
    case errNoReferencedRow, errNoReferencedRow2:
        return fmt.Errorf("%w: %s", booking.ErrNotFound, me.Message)
    }
    return err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
    Scan(dest ...any) error
}

// rollback is deferred by transactional methods; it is a no-op after a
// successful commit.
func rollback(tx *sql.Tx, committed *bool) {
    if !*committed {
        _ = tx.Rollback()
    }
}
