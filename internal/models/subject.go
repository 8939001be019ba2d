package models

import "time"

// Subject is a course identified by its code. Re-importing a code overwrites the
// name and weekly hours.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	WeeklyHours int       `db:"weekly_hours" json:"weeklyHours"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// SubjectInput carries the writable subject fields.
type SubjectInput struct {
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name" validate:"required"`
	WeeklyHours int    `json:"weeklyHours" validate:"gte=0"`
}
