package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements are applied in order at boot. Every statement is idempotent.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'STUDENT',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		on_holiday BOOLEAN NOT NULL DEFAULT FALSE,
		availability JSONB,
		xp INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 1,
		reminder_hours INTEGER NOT NULL DEFAULT 24,
		reminders_opt_out BOOLEAN NOT NULL DEFAULT FALSE,
		locale TEXT NOT NULL DEFAULT 'en-GB',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS lessons (
		id TEXT PRIMARY KEY,
		instructor_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		student_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		start_at TIMESTAMPTZ NOT NULL,
		end_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'upcoming' CHECK (status IN ('upcoming', 'completed', 'canceled')),
		notes TEXT,
		last_reminder_sent_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT lessons_time_order CHECK (end_at IS NULL OR start_at < end_at),
		CONSTRAINT lessons_no_overlap EXCLUDE USING gist (
			instructor_id WITH =,
			tstzrange(start_at, end_at, '[)') WITH &&
		) WHERE (status = 'upcoming')
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lessons_instructor_status ON lessons (instructor_id, status, start_at)`,
	`CREATE INDEX IF NOT EXISTS idx_lessons_student ON lessons (student_id, start_at)`,
	`CREATE INDEX IF NOT EXISTS idx_lessons_upcoming_start ON lessons (start_at) WHERE status = 'upcoming'`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		message TEXT NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at DESC)`,
}

// Migrate applies the lesson scheduling schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
