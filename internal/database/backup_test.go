package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"skyline/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	dir := t.TempDir()
	db, err := NewDB(filepath.Join(dir, "bookings.db"), zerologNop())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.CreateBooking(ctx, newBooking("frank")))

	storage := filepath.Join(dir, "backups")
	s := NewBackupService(db, config.BackupConfig{
		Enabled:       true,
		StoragePath:   storage,
		RetentionDays: 1,
	}, zerologNop())

	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(ctx)
		require.NoError(t, err)
		assert.FileExists(t, path)

		restored, err := NewDB(path, zerologNop())
		require.NoError(t, err)
		defer restored.Close()

		list, err := restored.ListBookings(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "frank", list[0].Name)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		old := filepath.Join(storage, backupPrefix+"old.db")
		require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
		oldTime := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(old, oldTime, oldTime))

		unrelated := filepath.Join(storage, "notes.txt")
		require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o644))
		require.NoError(t, os.Chtimes(unrelated, oldTime, oldTime))

		assert.Equal(t, 1, s.CleanupOldBackups())
		assert.NoFileExists(t, old)
		assert.FileExists(t, unrelated)
	})
}

func TestBackupService_SameSecond(t *testing.T) {
	dir := t.TempDir()
	db, err := NewDB(filepath.Join(dir, "bookings.db"), zerologNop())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.CreateBooking(ctx, newBooking("gina")))

	s := NewBackupService(db, config.BackupConfig{Enabled: true, StoragePath: filepath.Join(dir, "backups")}, zerologNop())
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	first, err := s.PerformBackup(ctx)
	require.NoError(t, err)
	second, err := s.PerformBackup(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	for _, path := range []string{first, second} {
		restored, err := NewDB(path, zerologNop())
		require.NoError(t, err)
		list, err := restored.ListBookings(ctx)
		restored.Close()
		require.NoError(t, err)
		assert.Len(t, list, 1)
	}
}

func TestBackupService_CopyFileKeepsExistingTarget(t *testing.T) {
	dir := t.TempDir()
	db, err := NewDB(filepath.Join(dir, "bookings.db"), zerologNop())
	require.NoError(t, err)
	defer db.Close()

	s := NewBackupService(db, config.BackupConfig{StoragePath: dir}, zerologNop())
	existing := filepath.Join(dir, backupPrefix+"taken.db")
	require.NoError(t, os.WriteFile(existing, []byte("earlier backup"), 0o644))

	assert.Error(t, s.copyFile(existing))
	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "earlier backup", string(data))

	fresh := filepath.Join(dir, backupPrefix+"fresh.db")
	require.NoError(t, s.copyFile(fresh))
	assert.FileExists(t, fresh)
}

func TestBackupService_Disabled(t *testing.T) {
	db := setupTestDB(t)
	s := NewBackupService(db, config.BackupConfig{Enabled: false}, zerologNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
}
