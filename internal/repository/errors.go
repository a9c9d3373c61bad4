// Package repository defines error types that are reused across multiple
// repositories.  Sentinel values let services and handlers tell failure
// classes apart without inspecting driver errors.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrReferential is returned when an event still has order items that
// reference its seats.  The items must be deleted first.
var ErrReferential = errors.New("event has dependent order items")

// ErrEventNotFound is returned when no event has the requested id.
var ErrEventNotFound = errors.New("event not found")

// ErrOrderNotFound is returned when an order does not exist or belongs to
// another user.
var ErrOrderNotFound = errors.New("order not found")

// ErrUserNotFound is returned by identity lookups.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicate signals a primary key collision (MySQL 1062).
var ErrDuplicate = errors.New("duplicate key")

// ErrHoldExpired is returned by order creation when hold expiry is on and one
// of the seats is no longer held by the caller.
var ErrHoldExpired = errors.New("seat hold expired")

// StorageError wraps connectivity and transaction failures.  The operation
// that produced it has been rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorage reports whether err is a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func mysqlCode(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	return mysqlCode(err) == 1062 || strings.Contains(err.Error(), "Error 1062")
}

// isForeignKey matches "cannot delete or update a parent row" (1451).
func isForeignKey(err error) bool {
	if err == nil {
		return false
	}
	return mysqlCode(err) == 1451 || strings.Contains(err.Error(), "Error 1451")
}
