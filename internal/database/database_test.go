package database

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestConnectRedis(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client, err := ConnectRedis(context.Background(), "redis://"+mini.Addr())
	require.NoError(t, err)
	defer client.Close()

	_, err = ConnectRedis(context.Background(), "")
	require.Error(t, err)
	_, err = ConnectRedis(context.Background(), "://bad")
	require.Error(t, err)
}

func TestMigrateCreatesContestSchema(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migrate?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"contests", "questions", "test_cases", "mcq_options", "results", "mcq_submissions", "practice_progress"} {
		require.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestConnectNATSRequiresURL(t *testing.T) {
	_, err := ConnectNATS("", "arena", zerolog.Nop())
	require.Error(t, err)

	_, err = ConnectPostgres("")
	require.Error(t, err)
}
