package database

import (
	"database/sql"
	"time"
)

// ToNullString converts a string to sql.NullString. Empty strings become NULL.
func ToNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// FromNullString extracts the string value from sql.NullString, or "" if NULL.
func FromNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// ToNullTime converts a time.Time to sql.NullTime. Zero values become NULL.
func ToNullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// FromNullTime extracts the time.Time value from sql.NullTime, or the zero
// value if NULL.
func FromNullTime(nt sql.NullTime) time.Time {
	if nt.Valid {
		return nt.Time
	}
	return time.Time{}
}

// ToNullInt64 converts an int64 to sql.NullInt64. Zero values become NULL.
func ToNullInt64(i int64) sql.NullInt64 {
	return sql.NullInt64{Int64: i, Valid: i != 0}
}

// FromNullInt64 extracts the int64 value from sql.NullInt64, or 0 if NULL.
func FromNullInt64(ni sql.NullInt64) int64 {
	if ni.Valid {
		return ni.Int64
	}
	return 0
}
