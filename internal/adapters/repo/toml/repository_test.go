package toml

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avezina/chatscan/internal/domain"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cfg := viper.New()
	cfg.Set("profiles.path", filepath.Join(t.TempDir(), "profiles.toml"))

	repo, err := NewRepository(cfg)
	require.NoError(t, err)
	return repo
}

func sampleProfile(name string) domain.Profile {
	return domain.Profile{
		Name:    name,
		UserIDs: []string{"u1", "u2"},
		From:    "2024-01-01",
		To:      "2024-01-31",
		Kinds:   []domain.ChatKind{domain.ChatKindTeam},
	}
}

func TestRepositorySaveAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	want := sampleProfile("weekly")
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Get(ctx, "weekly")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRepositoryGetUnknownName(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestRepositorySaveReplacesExisting(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleProfile("weekly")))

	updated := sampleProfile("weekly")
	updated.UserIDs = []string{"u3"}
	require.NoError(t, repo.Save(ctx, updated))

	got, err := repo.Get(ctx, "weekly")
	require.NoError(t, err)
	assert.Equal(t, []string{"u3"}, got.UserIDs)

	profiles, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 1, "saving a name twice must not duplicate it")
}

func TestRepositorySaveRejectsEmptyName(t *testing.T) {
	repo := newTestRepository(t)
	assert.Error(t, repo.Save(context.Background(), domain.Profile{}))
}

func TestRepositoryListPreservesOrder(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleProfile("alpha")))
	require.NoError(t, repo.Save(ctx, sampleProfile("beta")))
	require.NoError(t, repo.Save(ctx, sampleProfile("gamma")))

	profiles, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 3)
	assert.Equal(t, "alpha", profiles[0].Name)
	assert.Equal(t, "beta", profiles[1].Name)
	assert.Equal(t, "gamma", profiles[2].Name)
}

func TestRepositoryListEmptyFile(t *testing.T) {
	repo := newTestRepository(t)

	profiles, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestRepositoryDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleProfile("weekly")))
	require.NoError(t, repo.Delete(ctx, "weekly"))

	_, err := repo.Get(ctx, "weekly")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, "weekly"), domain.ErrProfileNotFound)
}

func TestRepositoryPersistsAcrossInstances(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "profiles.toml")

	newRepo := func() *Repository {
		cfg := viper.New()
		cfg.Set("profiles.path", path)
		repo, err := NewRepository(cfg)
		require.NoError(t, err)
		return repo
	}

	ctx := context.Background()
	require.NoError(t, newRepo().Save(ctx, sampleProfile("weekly")))

	got, err := newRepo().Get(ctx, "weekly")
	require.NoError(t, err)
	assert.Equal(t, sampleProfile("weekly"), got)
}

func TestRepositoryRejectsNewerSchemaVersion(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "profiles.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 99\n"), 0o600))

	cfg := viper.New()
	cfg.Set("profiles.path", path)
	repo, err := NewRepository(cfg)
	require.NoError(t, err)

	_, err = repo.List(context.Background())
	assert.Error(t, err)
}

func TestRepositoryFilePermissions(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "profiles.toml")

	cfg := viper.New()
	cfg.Set("profiles.path", path)
	repo, err := NewRepository(cfg)
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), sampleProfile("weekly")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRepositoryDefaultsPathFromHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	repo, err := NewRepository(nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".chatscan", "profiles.toml"), repo.profilesPath)
}
