// Package postgres provides a durable implementation of the activity catalog.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/signup/internal/domain"
	"example.com/signup/internal/observability"
)

const schema = `
CREATE TABLE IF NOT EXISTS activities (
    name             TEXT PRIMARY KEY,
    description      TEXT NOT NULL,
    schedule         TEXT NOT NULL,
    max_participants INTEGER NOT NULL,
    position         BIGSERIAL
);

ALTER TABLE activities ADD COLUMN IF NOT EXISTS version BIGINT NOT NULL DEFAULT 0;

CREATE TABLE IF NOT EXISTS activity_participants (
    activity_name TEXT NOT NULL REFERENCES activities(name),
    email         TEXT NOT NULL,
    signed_up_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    seq           BIGSERIAL,
    PRIMARY KEY (activity_name, email)
);`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides Postgres-backed persistence for the activity catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the catalog tables when they are missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Seed inserts activities that do not exist yet. Seed participants are only
// written alongside a newly inserted activity, so a restart never re-adds
// someone who has since unregistered.
func (r *Repository) Seed(ctx context.Context, activities []domain.Activity) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, activity := range activities {
		tag, err := tx.Exec(ctx, `INSERT INTO activities (name, description, schedule, max_participants)
            VALUES ($1,$2,$3,$4) ON CONFLICT (name) DO NOTHING`,
			activity.Name, activity.Description, activity.Schedule, activity.MaxParticipants)
		if err != nil {
			return fmt.Errorf("seed activity %q: %w", activity.Name, err)
		}
		if tag.RowsAffected() == 0 {
			continue
		}
		for _, email := range activity.Participants {
			if _, err := tx.Exec(ctx, `INSERT INTO activity_participants (activity_name, email)
                VALUES ($1,$2) ON CONFLICT DO NOTHING`, activity.Name, email); err != nil {
				return fmt.Errorf("seed participant %q: %w", email, err)
			}
		}
	}
	return tx.Commit(ctx)
}

// List implements domain.Repository.
func (r *Repository) List(ctx context.Context) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, description, schedule, max_participants, version FROM activities ORDER BY position`)
	if err != nil {
		return nil, err
	}
	activities, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Activity, error) {
		var a domain.Activity
		err := row.Scan(&a.Name, &a.Description, &a.Schedule, &a.MaxParticipants, &a.Version)
		a.Participants = []string{}
		return a, err
	})
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(activities))
	for i, a := range activities {
		index[a.Name] = i
	}

	prows, err := r.pool.Query(ctx, `SELECT activity_name, email FROM activity_participants ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var name, email string
		if err := prows.Scan(&name, &email); err != nil {
			return nil, err
		}
		if i, ok := index[name]; ok {
			activities[i].Participants = append(activities[i].Participants, email)
		}
	}
	return activities, prows.Err()
}

// Get implements domain.Repository. A missing activity yields (nil, nil).
func (r *Repository) Get(ctx context.Context, name string) (*domain.Activity, error) {
	return loadActivity(ctx, r.pool, name, false)
}

// AddParticipant implements domain.Repository.
func (r *Repository) AddParticipant(ctx context.Context, name, email string) (*domain.Activity, error) {
	return r.mutate(ctx, name, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `INSERT INTO activity_participants (activity_name, email)
            VALUES ($1,$2) ON CONFLICT DO NOTHING`, name, email)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrAlreadySignedUp
		}
		return nil
	})
}

// RemoveParticipant implements domain.Repository.
func (r *Repository) RemoveParticipant(ctx context.Context, name, email string) (*domain.Activity, error) {
	return r.mutate(ctx, name, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM activity_participants WHERE activity_name=$1 AND email=$2`, name, email)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotSignedUp
		}
		return nil
	})
}

// mutate locks the activity row for the duration of change so concurrent
// roster updates on the same activity serialize. A successful change bumps
// the activity version inside the same transaction.
func (r *Repository) mutate(ctx context.Context, name string, change func(pgx.Tx) error) (*domain.Activity, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var locked string
	if err := tx.QueryRow(ctx, `SELECT name FROM activities WHERE name=$1 FOR UPDATE`, name).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrActivityNotFound
		}
		return nil, err
	}

	if err := change(tx); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE activities SET version = version + 1 WHERE name=$1`, name); err != nil {
		return nil, fmt.Errorf("bump version of %q: %w", name, err)
	}

	activity, err := loadActivity(ctx, tx, name, true)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	observability.RecordParticipants(name, len(activity.Participants))
	return activity, nil
}

func loadActivity(ctx context.Context, q querier, name string, mustExist bool) (*domain.Activity, error) {
	var a domain.Activity
	err := q.QueryRow(ctx, `SELECT name, description, schedule, max_participants, version FROM activities WHERE name=$1`, name).
		Scan(&a.Name, &a.Description, &a.Schedule, &a.MaxParticipants, &a.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if mustExist {
				return nil, domain.ErrActivityNotFound
			}
			return nil, nil
		}
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT email FROM activity_participants WHERE activity_name=$1 ORDER BY seq`, name)
	if err != nil {
		return nil, err
	}
	emails, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	a.Participants = append([]string{}, emails...)
	return &a, nil
}
