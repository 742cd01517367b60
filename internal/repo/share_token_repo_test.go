package repo

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/ganttshare/internal/model"
	appErr "github.com/xxxsen/ganttshare/internal/pkg/errors"
	"github.com/xxxsen/ganttshare/internal/pkg/password"
	"github.com/xxxsen/ganttshare/internal/testutil"
)

func newTestShareTokenRepo(t *testing.T) (*ShareTokenRepo, *testutil.FakeClock) {
	t.Helper()
	clock := testutil.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	return NewShareTokenRepo(testutil.OpenTestDB(t), clock), clock
}

func strPtr(v string) *string {
	return &v
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestShareTokenRepoCreateAndGet(t *testing.T) {
	ctx := context.Background()
	tokens, clock := newTestShareTokenRepo(t)
	expiresAt := clock.Now().Add(48 * time.Hour).Unix()

	created, err := tokens.Create(ctx, CreateShareTokenInput{
		ProjectID:    "p1",
		Permissions:  []model.Permission{model.PermissionDownloadable, model.PermissionView},
		ShowContacts: true,
		Password:     strPtr("abc123"),
		ExpiresAt:    &expiresAt,
	})
	require.NoError(t, err)
	require.Len(t, created.Token, 2*shareTokenBytes)
	require.NotEqual(t, "abc123", created.PasswordHash)
	require.True(t, password.Match(created.PasswordHash, "abc123"))

	fetched, err := tokens.GetByToken(ctx, created.Token)
	require.NoError(t, err)
	require.Equal(t, "p1", fetched.ProjectID)
	require.Equal(t, []model.Permission{model.PermissionView, model.PermissionDownloadable}, fetched.Permissions)
	require.True(t, fetched.ShowContacts)
	require.Equal(t, clock.Now().Unix(), fetched.CreatedAt)
	require.NotNil(t, fetched.ExpiresAt)
	require.Equal(t, expiresAt, *fetched.ExpiresAt)
	require.Nil(t, fetched.RevokedAt)
	require.Nil(t, fetched.LastViewedAt)
	require.Zero(t, fetched.ViewCount)
	require.Zero(t, fetched.DownloadCount)
	require.True(t, fetched.HasPassword())

	_, err = tokens.GetByToken(ctx, "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestShareTokenRepoCreateRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	tokens, clock := newTestShareTokenRepo(t)

	_, err := tokens.Create(ctx, CreateShareTokenInput{ProjectID: "p1", Permissions: []model.Permission{model.PermissionEmbeddable}})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = tokens.Create(ctx, CreateShareTokenInput{ProjectID: "p1", Permissions: []model.Permission{"view", "print"}})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = tokens.Create(ctx, CreateShareTokenInput{
		ProjectID:   "p1",
		Permissions: []model.Permission{model.PermissionView},
		ExpiresAt:   int64Ptr(clock.Now().Add(-time.Minute).Unix()),
	})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = tokens.Create(ctx, CreateShareTokenInput{
		ProjectID:   "p1",
		Permissions: []model.Permission{model.PermissionView},
		Password:    strPtr(strings.Repeat("x", password.MaxLength+1)),
	})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	items, err := tokens.ListByProject(ctx, "p1")
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestShareTokenRepoListByProjectNewestFirst(t *testing.T) {
	ctx := context.Background()
	tokens, clock := newTestShareTokenRepo(t)

	var issued []string
	for i := 0; i < 3; i++ {
		created, err := tokens.Create(ctx, CreateShareTokenInput{ProjectID: "p1", Permissions: []model.Permission{model.PermissionView}})
		require.NoError(t, err)
		issued = append(issued, created.Token)
		clock.Advance(time.Minute)
	}
	_, err := tokens.Create(ctx, CreateShareTokenInput{ProjectID: "p2", Permissions: []model.Permission{model.PermissionView}})
	require.NoError(t, err)

	items, err := tokens.ListByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, issued[2], items[0].Token)
	require.Equal(t, issued[1], items[1].Token)
	require.Equal(t, issued[0], items[2].Token)

	again, err := tokens.ListByProject(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, items, again)
}

func TestShareTokenRepoCounters(t *testing.T) {
	ctx := context.Background()
	tokens, clock := newTestShareTokenRepo(t)

	viewOnly, err := tokens.Create(ctx, CreateShareTokenInput{ProjectID: "p1", Permissions: []model.Permission{model.PermissionView}})
	require.NoError(t, err)
	downloadable, err := tokens.Create(ctx, CreateShareTokenInput{
		ProjectID:   "p1",
		Permissions: []model.Permission{model.PermissionView, model.PermissionDownloadable},
	})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	require.NoError(t, tokens.RecordView(ctx, viewOnly.Token))
	require.ErrorIs(t, tokens.RecordDownload(ctx, viewOnly.Token), appErr.ErrNotFound)
	require.NoError(t, tokens.RecordDownload(ctx, downloadable.Token))
	require.ErrorIs(t, tokens.RecordView(ctx, "missing"), appErr.ErrNotFound)

	fetched, err := tokens.GetByToken(ctx, viewOnly.Token)
	require.NoError(t, err)
	require.EqualValues(t, 1, fetched.ViewCount)
	require.Zero(t, fetched.DownloadCount)
	require.NotNil(t, fetched.LastViewedAt)
	require.Equal(t, clock.Now().Unix(), *fetched.LastViewedAt)

	fetched, err = tokens.GetByToken(ctx, downloadable.Token)
	require.NoError(t, err)
	require.EqualValues(t, 1, fetched.DownloadCount)
	require.Zero(t, fetched.ViewCount)
}

func TestShareTokenRepoConcurrentViewsAreNotLost(t *testing.T) {
	ctx := context.Background()
	tokens, _ := newTestShareTokenRepo(t)
	created, err := tokens.Create(ctx, CreateShareTokenInput{ProjectID: "p1", Permissions: []model.Permission{model.PermissionView}})
	require.NoError(t, err)

	const workers = 25
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- tokens.RecordView(ctx, created.Token)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	fetched, err := tokens.GetByToken(ctx, created.Token)
	require.NoError(t, err)
	require.EqualValues(t, workers, fetched.ViewCount)
}

func TestShareTokenRepoRevokeIsSetOnce(t *testing.T) {
	ctx := context.Background()
	tokens, clock := newTestShareTokenRepo(t)
	created, err := tokens.Create(ctx, CreateShareTokenInput{ProjectID: "p1", Permissions: []model.Permission{model.PermissionView}})
	require.NoError(t, err)

	require.NoError(t, tokens.Revoke(ctx, created.Token))
	first, err := tokens.GetByToken(ctx, created.Token)
	require.NoError(t, err)
	require.NotNil(t, first.RevokedAt)

	clock.Advance(time.Hour)
	require.NoError(t, tokens.Revoke(ctx, created.Token))
	second, err := tokens.GetByToken(ctx, created.Token)
	require.NoError(t, err)
	require.Equal(t, *first.RevokedAt, *second.RevokedAt)

	require.ErrorIs(t, tokens.Revoke(ctx, "missing"), appErr.ErrNotFound)
}

func TestShareTokenRepoDeleteInactiveBefore(t *testing.T) {
	ctx := context.Background()
	tokens, clock := newTestShareTokenRepo(t)
	perms := []model.Permission{model.PermissionView}

	revoked, err := tokens.Create(ctx, CreateShareTokenInput{ProjectID: "p1", Permissions: perms})
	require.NoError(t, err)
	require.NoError(t, tokens.Revoke(ctx, revoked.Token))
	expiring, err := tokens.Create(ctx, CreateShareTokenInput{
		ProjectID:   "p1",
		Permissions: perms,
		ExpiresAt:   int64Ptr(clock.Now().Add(time.Hour).Unix()),
	})
	require.NoError(t, err)
	active, err := tokens.Create(ctx, CreateShareTokenInput{ProjectID: "p1", Permissions: perms})
	require.NoError(t, err)

	clock.Advance(10 * 24 * time.Hour)
	deleted, err := tokens.DeleteInactiveBefore(ctx, clock.Now().Add(-24*time.Hour).Unix())
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	_, err = tokens.GetByToken(ctx, revoked.Token)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = tokens.GetByToken(ctx, expiring.Token)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = tokens.GetByToken(ctx, active.Token)
	require.NoError(t, err)
}
