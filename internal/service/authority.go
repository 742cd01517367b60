package service

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ganttshare/internal/repo"
)

// ProjectAuthority answers whether a caller may issue, list or revoke links of a project.
type ProjectAuthority interface {
	CanManage(ctx context.Context, projectID, callerID string) (bool, error)
}

type ProjectAuthorityFunc func(ctx context.Context, projectID, callerID string) (bool, error)

func (f ProjectAuthorityFunc) CanManage(ctx context.Context, projectID, callerID string) (bool, error) {
	return f(ctx, projectID, callerID)
}

func NewRepoAuthority(projects *repo.ProjectRepo) ProjectAuthority {
	return ProjectAuthorityFunc(projects.IsOwner)
}

func WrapLruCacheToAuthority(next ProjectAuthority, size int, ttl time.Duration) ProjectAuthority {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &lruAuthority{
		next:  next,
		cache: expirable.NewLRU[string, bool](size, nil, ttl),
	}
}

type lruAuthority struct {
	next  ProjectAuthority
	cache *expirable.LRU[string, bool]
}

func (l *lruAuthority) CanManage(ctx context.Context, projectID, callerID string) (bool, error) {
	key := projectID + "|" + callerID
	if allowed, ok := l.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("project authority cache hit", zap.String("project_id", projectID))
		return allowed, nil
	}
	allowed, err := l.next.CanManage(ctx, projectID, callerID)
	if err != nil {
		return false, err
	}
	l.cache.Add(key, allowed)
	return allowed, nil
}
