package model

// NumberSequence is the per-(prefix, year) counter behind document numbers.
// A new row starts at zero for every year; issued numbers are contiguous
// from 1 upward.
type NumberSequence struct {
	ID         uint   `gorm:"primaryKey"`
	Prefix     string `gorm:"size:20;uniqueIndex:uq_number_sequences_prefix_year"`
	Year       int    `gorm:"uniqueIndex:uq_number_sequences_prefix_year"`
	LastNumber int    `gorm:"not null;default:0"`
}
