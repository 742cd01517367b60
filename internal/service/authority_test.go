package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWrapLruCacheToAuthority_CachesAnswers(t *testing.T) {
	calls := 0
	next := ProjectAuthorityFunc(func(ctx context.Context, projectID, callerID string) (bool, error) {
		calls++
		return callerID == "owner", nil
	})
	authority := WrapLruCacheToAuthority(next, 16, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, err := authority.CanManage(context.Background(), "p1", "owner")
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, err := authority.CanManage(context.Background(), "p1", "guest")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, 2, calls)
}

func TestWrapLruCacheToAuthority_DoesNotCacheErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	next := ProjectAuthorityFunc(func(ctx context.Context, projectID, callerID string) (bool, error) {
		calls++
		return false, boom
	})
	authority := WrapLruCacheToAuthority(next, 16, time.Minute)

	_, err := authority.CanManage(context.Background(), "p1", "owner")
	require.ErrorIs(t, err, boom)
	_, err = authority.CanManage(context.Background(), "p1", "owner")
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, calls)
}

func TestWrapLruCacheToAuthority_DisabledReturnsNext(t *testing.T) {
	next := ProjectAuthorityFunc(func(ctx context.Context, projectID, callerID string) (bool, error) {
		return true, nil
	})
	require.NotNil(t, WrapLruCacheToAuthority(next, 0, time.Minute))
	_, isCache := WrapLruCacheToAuthority(next, 0, time.Minute).(*lruAuthority)
	require.False(t, isCache)
}
