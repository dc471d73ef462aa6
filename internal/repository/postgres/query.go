package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/repository"
	"github.com/and161185/estatedesk/internal/workflow"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// whereFilter renders the WHERE clause of a list query and its positional args.
func whereFilter(f repository.Filter, ownerCol string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.OwnerID != uuid.Nil {
		args = append(args, f.OwnerID)
		conds = append(conds, fmt.Sprintf("%s=$%d", ownerCol, len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// countByStatus runs a GROUP BY status over table, optionally scoped to one owner.
func countByStatus(ctx context.Context, db *DB, kind workflow.Kind, ownerCol string, owner uuid.UUID) ([]model.StatusCount, error) {
	where, args := whereFilter(repository.Filter{OwnerID: owner}, ownerCol)
	q := "SELECT status, count(*) FROM " + kind.Table() + where + " GROUP BY status ORDER BY status"
	rows, err := db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StatusCount
	for rows.Next() {
		var (
			st string
			n  int64
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out = append(out, model.StatusCount{Kind: kind, Status: st, Count: int(n)})
	}
	return out, rows.Err()
}

// expectOne maps a zero-row command to errs.ErrNotFound.
func expectOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
