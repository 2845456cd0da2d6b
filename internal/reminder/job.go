// Package reminder implements the waste-collection reminder engine: the job
// data model, the durable job store, the per-key timer scheduler, and the
// service tying them together.
package reminder

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrInvalidDate is returned when a due date does not parse as dd.mm.yyyy.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidCategory is returned when a waste category is not one of the
	// four known tokens.
	ErrInvalidCategory = errors.New("invalid waste category")
)

// DueDateLayout is the wire format for due dates.
const DueDateLayout = "02.01.2006"

// Category is one of the four waste types a reminder can be about.
type Category string

const (
	CategoryBio     Category = "bio"
	CategoryRest    Category = "rest"
	CategoryPapier  Category = "papier"
	CategoryPlastik Category = "plastik"
)

// Categories returns all known categories in display order.
func Categories() []Category {
	return []Category{CategoryBio, CategoryRest, CategoryPapier, CategoryPlastik}
}

// ParseCategory validates a category token. Matching is exact and
// case-sensitive, with no aliases.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryBio, CategoryRest, CategoryPapier, CategoryPlastik:
		return Category(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Date is a naive calendar date with no time-of-day or timezone component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDueDate parses a dd.mm.yyyy date. The day and month must be
// zero-padded, matching the documented command format exactly.
func ParseDueDate(s string) (Date, error) {
	t, err := time.Parse(DueDateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// DateOf extracts the calendar date from an instant.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Time returns midnight of the date in the given location.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Before reports whether d is an earlier calendar date than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// String formats the date as dd.mm.yyyy.
func (d Date) String() string {
	return d.Time(time.UTC).Format(DueDateLayout)
}

// MarshalJSON encodes the date as a quoted dd.mm.yyyy string, keeping the
// stored schema readable and independent of Go's time encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	return strconv.AppendQuote(nil, d.String()), nil
}

// UnmarshalJSON decodes a quoted dd.mm.yyyy string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, data)
	}
	parsed, err := ParseDueDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// State is the lifecycle state of a reminder job. Only pending jobs are ever
// persisted; fired and cancelled jobs are removed from the store.
type State string

const (
	StatePending   State = "pending"
	StateFired     State = "fired"
	StateCancelled State = "cancelled"
)

// JobKey is the composite identity of a reminder. At most one job exists per
// key; adding with an existing key replaces the prior job and its timer.
type JobKey struct {
	ChatID   int64
	DueDate  Date
	Category Category
}

// String formats the key for log output.
func (k JobKey) String() string {
	return fmt.Sprintf("%d/%s/%s", k.ChatID, k.DueDate, k.Category)
}

// JobRecord is the persisted payload of a reminder.
type JobRecord struct {
	ChatID   int64     `json:"chat_id"`
	DueDate  Date      `json:"due_date"`
	Category Category  `json:"category"`
	FireAt   time.Time `json:"fire_at"`
	State    State     `json:"state"`
}

// Key returns the composite identity of the record.
func (r JobRecord) Key() JobKey {
	return JobKey{ChatID: r.ChatID, DueDate: r.DueDate, Category: r.Category}
}

// FireAt computes the instant a reminder for the given due date fires: the
// configured hour on the day before the collection.
func FireAt(due Date, hour int, loc *time.Location) time.Time {
	eve := due.Time(loc).AddDate(0, 0, -1)
	return time.Date(eve.Year(), eve.Month(), eve.Day(), hour, 0, 0, 0, loc)
}
