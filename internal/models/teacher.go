package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Weekdays lists the weekday keys in calendar order.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// DailyTask is one timetable entry of a teacher's day.
type DailyTask struct {
	Period  string `json:"period"`
	Subject string `json:"subject"`
	Class   string `json:"class"`
	Time    string `json:"time"`
}

// DailyTasks maps a lowercase weekday name to the ordered tasks of that day. It is
// stored as JSONB.
type DailyTasks map[string][]DailyTask

// NormalizeWeekday lowercases and trims a weekday key, expanding three-letter forms.
func NormalizeWeekday(day string) string {
	day = strings.ToLower(strings.TrimSpace(day))
	if len(day) == 3 {
		for _, full := range Weekdays {
			if strings.HasPrefix(full, day) {
				return full
			}
		}
	}
	return day
}

// Normalize returns a copy whose keys are normalised weekday names. Entries of keys
// that collapse onto the same day are concatenated in key order.
func (d DailyTasks) Normalize() DailyTasks {
	out := make(DailyTasks, len(d))
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		day := NormalizeWeekday(k)
		if day == "" {
			continue
		}
		out[day] = append(out[day], d[k]...)
	}
	return out
}

// Value implements driver.Valuer.
func (d DailyTasks) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *DailyTasks) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = DailyTasks{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan daily tasks: unsupported type %T", src)
	}
	tasks := DailyTasks{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &tasks); err != nil {
			return fmt.Errorf("scan daily tasks: %w", err)
		}
	}
	*d = tasks
	return nil
}

// Teacher is a faculty member. FullName is the natural key used by the importer.
type Teacher struct {
	ID            string     `db:"id" json:"id"`
	UserID        *string    `db:"user_id" json:"userId,omitempty"`
	FullName      string     `db:"full_name" json:"fullName"`
	Email         *string    `db:"email" json:"email,omitempty"`
	Phone         *string    `db:"phone" json:"phone,omitempty"`
	Department    string     `db:"department" json:"department"`
	WeeklyHours   int        `db:"weekly_hours" json:"weeklyHours"`
	ClassAssigned string     `db:"class_assigned" json:"classAssigned"`
	DailyTasks    DailyTasks `db:"daily_tasks" json:"dailyTasks"`
	SubjectIDs    []string   `db:"-" json:"subjects"`
	LoadAssigned  []string   `db:"-" json:"loadAssigned"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// HasLoad reports whether subjectID is already in the teacher's assigned load.
func (t *Teacher) HasLoad(subjectID string) bool {
	for _, id := range t.LoadAssigned {
		if id == subjectID {
			return true
		}
	}
	return false
}

// TeacherInput carries the writable teacher fields. Nil slices leave the stored sets
// untouched on update.
type TeacherInput struct {
	FullName      string     `json:"fullName" validate:"required"`
	Email         string     `json:"email" validate:"required,email"`
	Phone         string     `json:"phone"`
	Department    string     `json:"department" validate:"required"`
	WeeklyHours   int        `json:"weeklyHours" validate:"gte=0"`
	ClassAssigned string     `json:"classAssigned"`
	UserID        string     `json:"userId"`
	SubjectIDs    []string   `json:"subjects" validate:"omitempty,dive,required"`
	LoadAssigned  []string   `json:"loadAssigned" validate:"omitempty,dive,required"`
	DailyTasks    DailyTasks `json:"dailyTasks"`
}

// TeacherUpdateInput is a partial update. Nil fields keep their stored value.
type TeacherUpdateInput struct {
	FullName      *string     `json:"fullName" validate:"omitempty,min=1"`
	Email         *string     `json:"email" validate:"omitempty,email"`
	Phone         *string     `json:"phone"`
	Department    *string     `json:"department"`
	WeeklyHours   *int        `json:"weeklyHours" validate:"omitempty,gte=0"`
	ClassAssigned *string     `json:"classAssigned"`
	UserID        *string     `json:"userId"`
	SubjectIDs    []string    `json:"subjects" validate:"omitempty,dive,required"`
	LoadAssigned  []string    `json:"loadAssigned" validate:"omitempty,dive,required"`
	DailyTasks    *DailyTasks `json:"dailyTasks"`
}

// TeacherFilter narrows teacher listings.
type TeacherFilter struct {
	Email      string
	Department string
}
