package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 0002_add_user_profile.sql
var addUserProfileSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, addUserProfileSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `ALTER TABLE users
				DROP COLUMN IF EXISTS area_of_interest,
				DROP COLUMN IF EXISTS parent_email,
				DROP COLUMN IF EXISTS screen_time_limit`)
			return err
		},
	)
}
