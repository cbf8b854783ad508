package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"archon-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type scanner interface {
	Scan(dest ...any) error
}

// notFound turns the driver's no-rows error into domain.ErrNotFound and
// returns every other error unchanged.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// setClause renders "col1=$2, col2=$3, ..." starting at placeholder start,
// always followed by updated_at when touch is set.
func setClause(cols []string, start int, touch bool) string {
	parts := make([]string, 0, len(cols)+1)
	for i, c := range cols {
		parts = append(parts, fmt.Sprintf("%s=$%d", c, start+i))
	}
	if touch {
		parts = append(parts, "updated_at=now()")
	}
	return strings.Join(parts, ", ")
}

func nullableFloat(v *float64) any {
	if v == nil {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Valid: true, Float64: *v}
}

func nullableTime(v *time.Time) any {
	if v == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Valid: true, Time: *v}
}

func nullableText(v *string) any {
	if v == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{Valid: true, String: *v}
}

func nullableInt(v *int) any {
	if v == nil {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Valid: true, Int32: int32(*v)}
}

func floatPtr(v pgtype.Float8) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func timePtr(v pgtype.Timestamptz) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func textPtr(v pgtype.Text) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func intPtr(v pgtype.Int4) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int32)
	return &i
}
