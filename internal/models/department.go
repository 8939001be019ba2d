package models

import "time"

// Department is a branch offered in one semester. (Name, Semester) is unique; the
// semester is a free-form label such as "5" or "V".
type Department struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Semester   string    `db:"semester" json:"semester"`
	SubjectIDs []string  `db:"-" json:"subjectIds"`
	Subjects   []Subject `db:"-" json:"subjects,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// DepartmentInput carries the writable department fields. A nil SubjectIDs leaves the
// subject set untouched on update.
type DepartmentInput struct {
	Name       string   `json:"name" validate:"required"`
	Semester   string   `json:"semester" validate:"required"`
	SubjectIDs []string `json:"subjectIds" validate:"omitempty,dive,required"`
}
