package sequence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Allocator issues human-readable document numbers from per-(prefix, year)
// counters. Allocate must run on the transaction that also inserts the
// document: the counter increment then commits or rolls back together with
// the insert, so a failed creation never burns a number.
type Allocator struct {
	now func() time.Time
}

func NewAllocator() *Allocator {
	return &Allocator{now: time.Now}
}

// Allocate increments the counter for (prefix, current year) and returns the
// formatted number. The upsert takes a row lock on the sequence, so
// concurrent allocations for the same key serialize in the store and can
// never observe the same counter value.
func (a *Allocator) Allocate(ctx context.Context, tx *gorm.DB, prefix string) (string, error) {
	year := a.now().Year()
	var last int
	err := tx.WithContext(ctx).Raw(`
		INSERT INTO number_sequences (prefix, year, last_number)
		VALUES (?, ?, 1)
		ON CONFLICT (prefix, year) DO UPDATE
		SET last_number = number_sequences.last_number + 1
		RETURNING last_number
	`, prefix, year).Scan(&last).Error
	if err != nil {
		return "", fmt.Errorf("allocate %s number: %w", prefix, err)
	}
	return Format(prefix, year, last), nil
}

// Format renders a document number as PREFIX-YEAR-NNNN. Numbers are
// zero-padded to four digits; larger counters keep all their digits.
func Format(prefix string, year, number int) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, number)
}
