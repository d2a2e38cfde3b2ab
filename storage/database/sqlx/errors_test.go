package sqlxrepos

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

func Test_trapErr(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     error
		wantRule string
	}{
		{name: "nil passes through", err: nil, want: nil},
		{name: "no rows -> not found", err: sql.ErrNoRows, want: school.ErrNotFound},
		{name: "deadline -> store unavailable", err: context.DeadlineExceeded, want: core.ErrStoreUnavailable},
		{
			name:     "duplicate email",
			err:      &pq.Error{Code: "23505", Constraint: "account_email_key", Table: "account"},
			wantRule: core.RuleUniqueEmail,
		},
		{
			name:     "insert with dangling course",
			err:      &pq.Error{Code: "23503", Constraint: "enrollment_course_id_fkey", Table: "enrollment"},
			wantRule: core.RuleCourseRef,
		},
		{
			// DELETE FROM course loses the race against a new enrollment: pg
			// reports the parent table, and callers must see a dependents
			// refusal rather than "course not found"
			name: "delete referenced course",
			err:  &pq.Error{Code: "23503", Constraint: "enrollment_course_id_fkey", Table: "course"},
			want: core.ErrHasDependents,
		},
		{
			name: "delete referenced student",
			err:  &pq.Error{Code: "23503", Constraint: "activity_student_id_fkey", Table: "student"},
			want: core.ErrHasDependents,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trapErr(tt.err, school.ErrNotFound, "testing")
			if tt.wantRule != "" {
				cerr, ok := core.AsConstraintError(got)
				if !ok {
					t.Fatalf("trapErr() = %v, want *core.ConstraintError", got)
				}
				if cerr.Rule != tt.wantRule {
					t.Errorf("trapErr() rule = %s, want %s", cerr.Rule, tt.wantRule)
				}
				return
			}
			if got != tt.want {
				t.Errorf("trapErr() = %v, want %v", got, tt.want)
			}
		})
	}
}
