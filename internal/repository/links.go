package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// subjectLinkTable describes an ordered owner -> subject set table.
type subjectLinkTable struct {
	name        string
	ownerColumn string
}

var (
	departmentSubjectLinks = subjectLinkTable{name: "department_subjects", ownerColumn: "department_id"}
	teacherSubjectLinks    = subjectLinkTable{name: "teacher_subjects", ownerColumn: "teacher_id"}
	teacherLoadLinks       = subjectLinkTable{name: "teacher_loads", ownerColumn: "teacher_id"}
)

type linkRow struct {
	OwnerID   string `db:"owner_id"`
	SubjectID string `db:"subject_id"`
}

// load returns the subject ids of every owner, in insertion order.
func (t subjectLinkTable) load(ctx context.Context, db *sqlx.DB, ownerIDs []string) (map[string][]string, error) {
	links := make(map[string][]string, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return links, nil
	}

	query, args, err := sqlx.In(fmt.Sprintf(
		"SELECT %s AS owner_id, subject_id FROM %s WHERE %s IN (?) ORDER BY position",
		t.ownerColumn, t.name, t.ownerColumn), ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", t.name, err)
	}

	var rows []linkRow
	if err := db.SelectContext(ctx, &rows, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load %s: %w", t.name, err)
	}
	for _, row := range rows {
		links[row.OwnerID] = append(links[row.OwnerID], row.SubjectID)
	}
	return links, nil
}

// add inserts one link and reports whether it was new.
func (t subjectLinkTable) add(ctx context.Context, exec sqlx.ExecerContext, ownerID, subjectID string) (bool, error) {
	query := fmt.Sprintf("INSERT INTO %s (%s, subject_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", t.name, t.ownerColumn)
	res, err := exec.ExecContext(ctx, query, ownerID, subjectID)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", t.name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", t.name, err)
	}
	return affected > 0, nil
}

// replace swaps the owner's whole set inside tx. Duplicates collapse.
func (t subjectLinkTable) replace(ctx context.Context, tx *sqlx.Tx, ownerID string, subjectIDs []string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", t.name, t.ownerColumn)
	if _, err := tx.ExecContext(ctx, query, ownerID); err != nil {
		return fmt.Errorf("clear %s: %w", t.name, err)
	}
	for _, subjectID := range subjectIDs {
		if _, err := t.add(ctx, tx, ownerID, subjectID); err != nil {
			return err
		}
	}
	return nil
}
