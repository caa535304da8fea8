package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Role enum
type Role string

const (
	RoleReader Role = "READER"
	RoleAdmin  Role = "ADMIN"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleReader || r == RoleAdmin
}

// UserStatus enum
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusDisabled UserStatus = "DISABLED"
)

// Valid reports whether s is a known user status
func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusDisabled
}

// BookStatus enum, derived from available copies
type BookStatus string

const (
	BookAvailable BookStatus = "AVAILABLE"
	BookBorrowed  BookStatus = "BORROWED"
)

// BorrowStatus enum
type BorrowStatus string

const (
	BorrowPending  BorrowStatus = "PENDING"
	BorrowApproved BorrowStatus = "APPROVED"
	BorrowRejected BorrowStatus = "REJECTED"
	BorrowReturned BorrowStatus = "RETURNED"
	BorrowOverdue  BorrowStatus = "OVERDUE"
)

// ActiveBorrowStatuses hold a copy or a claim on one
var ActiveBorrowStatuses = []BorrowStatus{BorrowPending, BorrowApproved, BorrowOverdue}

// ParseBorrowStatus validates a status coming from a request
func ParseBorrowStatus(s string) (BorrowStatus, error) {
	switch st := BorrowStatus(s); st {
	case BorrowPending, BorrowApproved, BorrowRejected, BorrowReturned, BorrowOverdue:
		return st, nil
	}
	return "", fmt.Errorf("unknown borrow status %q", s)
}

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// Date is a calendar date stored at UTC midnight.
// It serializes as YYYY-MM-DD in JSON and as a date column in the database.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in t's own location, then pins it to UTC midnight
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (want %s): %w", s, DateLayout, err)
	}
	return NewDate(t), nil
}

// AddDays returns the date n days later
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// GormDataType tells gorm to create a date column
func (Date) GormDataType() string {
	return "date"
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = NewDate(v)
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", value)
	}
	return nil
}

func (d *Date) scanString(s string) error {
	if len(s) >= len(DateLayout) {
		if t, err := time.Parse(DateLayout, s[:len(DateLayout)]); err == nil {
			*d = NewDate(t)
			return nil
		}
	}
	return fmt.Errorf("cannot parse %q as date", s)
}
