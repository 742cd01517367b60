package service

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ganttshare/internal/model"
	appErr "github.com/xxxsen/ganttshare/internal/pkg/errors"
	"github.com/xxxsen/ganttshare/internal/pkg/password"
	"github.com/xxxsen/ganttshare/internal/pkg/timeutil"
	"github.com/xxxsen/ganttshare/internal/repo"
)

const (
	DefaultShareURLPrefix   = "/share/gantt/"
	defaultMaxExpiresInDays = 3650
	secondsPerDay           = int64(24 * time.Hour / time.Second)
)

type ShareOptions struct {
	URLPrefix        string
	MaxExpiresInDays int
	// ListAuthority answers ownership for List only. Issue and Revoke always
	// consult the authority passed to NewShareService. Defaults to that authority.
	ListAuthority ProjectAuthority
}

// ShareService enforces the share link state machine on top of the token store.
// It holds no mutable state of its own.
type ShareService struct {
	tokens    *repo.ShareTokenRepo
	authority ProjectAuthority
	clock     timeutil.Clock
	opts      ShareOptions
}

func NewShareService(tokens *repo.ShareTokenRepo, authority ProjectAuthority, clock timeutil.Clock, opts ShareOptions) *ShareService {
	if clock == nil {
		clock = timeutil.SystemClock()
	}
	if opts.URLPrefix == "" {
		opts.URLPrefix = DefaultShareURLPrefix
	}
	if opts.MaxExpiresInDays <= 0 {
		opts.MaxExpiresInDays = defaultMaxExpiresInDays
	}
	if opts.ListAuthority == nil {
		opts.ListAuthority = authority
	}
	return &ShareService{tokens: tokens, authority: authority, clock: clock, opts: opts}
}

type IssueShareInput struct {
	Permissions   []model.Permission
	ShowContacts  bool
	Password      *string
	ExpiresInDays *int
}

type IssueShareResult struct {
	Token     string         `json:"token"`
	ShareURL  string         `json:"share_url"`
	CreatedAt int64          `json:"created_at"`
	ExpiresAt *int64         `json:"expires_at,omitempty"`
	Link      *ShareLinkView `json:"link"`
}

// ShareLinkView is the owner-facing projection of a link. The password hash never leaves the service.
type ShareLinkView struct {
	Token         string             `json:"token"`
	ShareURL      string             `json:"share_url"`
	Permissions   []model.Permission `json:"permissions"`
	ShowContacts  bool               `json:"show_contacts"`
	CreatedAt     int64              `json:"created_at"`
	ExpiresAt     *int64             `json:"expires_at,omitempty"`
	RevokedAt     *int64             `json:"revoked_at,omitempty"`
	ViewCount     int64              `json:"view_count"`
	DownloadCount int64              `json:"download_count"`
	LastViewedAt  *int64             `json:"last_viewed_at,omitempty"`
	HasPassword   bool               `json:"has_password"`
	State         ShareState         `json:"state"`
}

// ShareURL renders the relative public path of a token. Scheme and host belong to the caller.
func (s *ShareService) ShareURL(token string) string {
	return s.opts.URLPrefix + token
}

func (s *ShareService) Issue(ctx context.Context, callerID, projectID string, input IssueShareInput) (*IssueShareResult, error) {
	if err := s.checkOwner(ctx, s.authority, projectID, callerID); err != nil {
		return nil, err
	}
	perms, err := model.NormalizePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}
	var expiresAt *int64
	if input.ExpiresInDays != nil {
		days := *input.ExpiresInDays
		if days <= 0 {
			return nil, appErr.Invalid("expires_in_days", "must be a positive integer")
		}
		if days > s.opts.MaxExpiresInDays {
			return nil, appErr.Invalid("expires_in_days", "must be at most %d", s.opts.MaxExpiresInDays)
		}
		value := s.clock.Now().Unix() + int64(days)*secondsPerDay
		expiresAt = &value
	}
	if input.Password != nil {
		if strings.TrimSpace(*input.Password) == "" {
			return nil, appErr.Invalid("password", "must not be blank")
		}
		if len(*input.Password) > password.MaxLength {
			return nil, appErr.Invalid("password", "must be at most %d bytes", password.MaxLength)
		}
	}
	token, err := s.tokens.Create(ctx, repo.CreateShareTokenInput{
		ProjectID:    projectID,
		Permissions:  perms,
		ShowContacts: input.ShowContacts,
		Password:     input.Password,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("share link issued",
		zap.String("project_id", projectID),
		zap.String("caller_id", callerID),
		zap.String("token_prefix", tokenPrefix(token.Token)),
		zap.Bool("password", token.HasPassword()),
	)
	view := s.toView(token, s.clock.Now().Unix())
	return &IssueShareResult{
		Token:     token.Token,
		ShareURL:  view.ShareURL,
		CreatedAt: token.CreatedAt,
		ExpiresAt: token.ExpiresAt,
		Link:      view,
	}, nil
}

// Resolve validates a visitor's access attempt. Each grant counts as one view.
func (s *ShareService) Resolve(ctx context.Context, token string, suppliedPassword *string) (*Access, error) {
	record, access, err := s.authorize(ctx, token, suppliedPassword)
	if err != nil || access != nil {
		return access, err
	}
	if err := s.tokens.RecordView(ctx, token); err != nil {
		if appErr.IsNotFound(err) {
			return denied(DenialNotFound), nil
		}
		return nil, err
	}
	return granted(record), nil
}

// RecordDownload runs the same gate as Resolve and additionally requires the downloadable permission.
func (s *ShareService) RecordDownload(ctx context.Context, token string, suppliedPassword *string) (*Access, error) {
	record, access, err := s.authorize(ctx, token, suppliedPassword)
	if err != nil || access != nil {
		return access, err
	}
	if !record.HasPermission(model.PermissionDownloadable) {
		s.logDenial(ctx, token, DenialNotPermitted)
		return denied(DenialNotPermitted), nil
	}
	if err := s.tokens.RecordDownload(ctx, token); err != nil {
		if appErr.IsNotFound(err) {
			return denied(DenialNotFound), nil
		}
		return nil, err
	}
	return granted(record), nil
}

// Revoke is idempotent. Tokens of another project are reported as not found.
func (s *ShareService) Revoke(ctx context.Context, callerID, projectID, token string) error {
	if err := s.checkOwner(ctx, s.authority, projectID, callerID); err != nil {
		return err
	}
	record, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if record.ProjectID != projectID {
		return appErr.ErrNotFound
	}
	if err := s.tokens.Revoke(ctx, token); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("share link revoked",
		zap.String("project_id", projectID),
		zap.String("caller_id", callerID),
		zap.String("token_prefix", tokenPrefix(token)),
	)
	return nil
}

func (s *ShareService) List(ctx context.Context, callerID, projectID string) ([]ShareLinkView, error) {
	if err := s.checkOwner(ctx, s.opts.ListAuthority, projectID, callerID); err != nil {
		return nil, err
	}
	items, err := s.tokens.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().Unix()
	views := make([]ShareLinkView, 0, len(items))
	for i := range items {
		views = append(views, *s.toView(&items[i], now))
	}
	return views, nil
}

// authorize returns the record when it may be accessed, or a denial.
func (s *ShareService) authorize(ctx context.Context, token string, suppliedPassword *string) (*model.ShareToken, *Access, error) {
	record, err := s.tokens.GetByToken(ctx, token)
	if appErr.IsNotFound(err) {
		s.logDenial(ctx, token, DenialNotFound)
		return nil, denied(DenialNotFound), nil
	}
	if err != nil {
		logutil.GetLogger(ctx).Error("load share token failed", zap.Error(err))
		return nil, nil, err
	}
	var reason DenialReason
	switch StateOf(record, s.clock.Now().Unix()) {
	case ShareStateRevoked:
		reason = DenialRevoked
	case ShareStateExpired:
		reason = DenialExpired
	default:
		if record.HasPassword() {
			if suppliedPassword == nil {
				reason = DenialPasswordRequired
			} else if !password.Match(record.PasswordHash, *suppliedPassword) {
				reason = DenialPasswordIncorrect
			}
		}
	}
	if reason != "" {
		s.logDenial(ctx, token, reason)
		return nil, denied(reason), nil
	}
	return record, nil, nil
}

func (s *ShareService) checkOwner(ctx context.Context, authority ProjectAuthority, projectID, callerID string) error {
	if strings.TrimSpace(callerID) == "" {
		return appErr.ErrUnauthorized
	}
	if strings.TrimSpace(projectID) == "" {
		return appErr.Invalid("project_id", "must not be empty")
	}
	allowed, err := authority.CanManage(ctx, projectID, callerID)
	if err != nil {
		return err
	}
	if !allowed {
		return appErr.ErrForbidden
	}
	return nil
}

func (s *ShareService) toView(token *model.ShareToken, now int64) *ShareLinkView {
	return &ShareLinkView{
		Token:         token.Token,
		ShareURL:      s.ShareURL(token.Token),
		Permissions:   token.Permissions,
		ShowContacts:  token.ShowContacts,
		CreatedAt:     token.CreatedAt,
		ExpiresAt:     token.ExpiresAt,
		RevokedAt:     token.RevokedAt,
		ViewCount:     token.ViewCount,
		DownloadCount: token.DownloadCount,
		LastViewedAt:  token.LastViewedAt,
		HasPassword:   token.HasPassword(),
		State:         StateOf(token, now),
	}
}

func (s *ShareService) logDenial(ctx context.Context, token string, reason DenialReason) {
	logutil.GetLogger(ctx).Debug("share access denied",
		zap.String("token_prefix", tokenPrefix(token)),
		zap.String("reason", string(reason)),
	)
}

func tokenPrefix(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}
