package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/streettrees/internal/database"
	"github.com/stwalsh4118/streettrees/internal/models"
)

// TreeRepository reads census rows stored in Postgres.
type TreeRepository interface {
	// StreamTrees calls fn once per stored row, in census order. Values are
	// passed through unvalidated; NULL text columns arrive as empty strings.
	// Returning an error from fn stops the stream and returns that error.
	StreamTrees(ctx context.Context, fn func(models.TreeFields) error) error

	// Count returns the number of stored rows.
	Count(ctx context.Context) (int, error)
}

// querier is the part of pgxpool.Pool the repository needs.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type treeRepository struct {
	db querier
}

// NewTreeRepository creates a TreeRepository backed by db.
func NewTreeRepository(db *database.Database) TreeRepository {
	return &treeRepository{db: db.Pool}
}

// street_trees mirrors the census export columns the catalog uses, plus
// census_row holding the 1-based position of the row in the original file:
//
//	census_row bigint PRIMARY KEY, tree_id int, tree_dbh int, status text,
//	health text, spc_common text, zipcode int, boroname text,
//	x_sp double precision, y_sp double precision
const streamTreesQuery = `
	SELECT
		tree_id,
		tree_dbh,
		COALESCE(status, ''),
		COALESCE(health, ''),
		COALESCE(spc_common, ''),
		zipcode,
		COALESCE(boroname, ''),
		x_sp,
		y_sp
	FROM street_trees
	ORDER BY census_row
`

func (r *treeRepository) StreamTrees(ctx context.Context, fn func(models.TreeFields) error) error {
	rows, err := r.db.Query(ctx, streamTreesQuery)
	if err != nil {
		return fmt.Errorf("failed to query street trees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f models.TreeFields
		if err := rows.Scan(
			&f.ID,
			&f.Diam,
			&f.Status,
			&f.Health,
			&f.Species,
			&f.Zip,
			&f.Borough,
			&f.X,
			&f.Y,
		); err != nil {
			return fmt.Errorf("failed to scan street tree row: %w", err)
		}
		if err := fn(f); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating street tree rows: %w", err)
	}
	return nil
}

func (r *treeRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM street_trees`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count street trees: %w", err)
	}
	return n, nil
}
