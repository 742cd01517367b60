package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/ganttshare/internal/model"
	"github.com/xxxsen/ganttshare/internal/pkg/dbutil"
	appErr "github.com/xxxsen/ganttshare/internal/pkg/errors"
	"github.com/xxxsen/ganttshare/internal/pkg/password"
	"github.com/xxxsen/ganttshare/internal/pkg/timeutil"
)

const (
	shareTokenTable   = "share_tokens"
	maxTokenAttempts  = 3
	downloadableMatch = "%" + string(model.PermissionDownloadable) + "%"
)

var shareTokenFields = []string{
	"id", "token", "project_id", "permissions", "show_contacts", "password_hash",
	"created_at", "expires_at", "revoked_at", "view_count", "download_count", "last_viewed_at",
}

type shareTokenRow struct {
	ID            string        `db:"id"`
	Token         string        `db:"token"`
	ProjectID     string        `db:"project_id"`
	Permissions   string        `db:"permissions"`
	ShowContacts  int           `db:"show_contacts"`
	PasswordHash  string        `db:"password_hash"`
	CreatedAt     int64         `db:"created_at"`
	ExpiresAt     sql.NullInt64 `db:"expires_at"`
	RevokedAt     sql.NullInt64 `db:"revoked_at"`
	ViewCount     int64         `db:"view_count"`
	DownloadCount int64         `db:"download_count"`
	LastViewedAt  sql.NullInt64 `db:"last_viewed_at"`
}

func (row *shareTokenRow) toModel() *model.ShareToken {
	return &model.ShareToken{
		ID:            row.ID,
		Token:         row.Token,
		ProjectID:     row.ProjectID,
		Permissions:   model.DecodePermissions(row.Permissions),
		ShowContacts:  row.ShowContacts != 0,
		PasswordHash:  row.PasswordHash,
		CreatedAt:     row.CreatedAt,
		ExpiresAt:     fromNullInt64(row.ExpiresAt),
		RevokedAt:     fromNullInt64(row.RevokedAt),
		ViewCount:     row.ViewCount,
		DownloadCount: row.DownloadCount,
		LastViewedAt:  fromNullInt64(row.LastViewedAt),
	}
}

type CreateShareTokenInput struct {
	ProjectID    string
	Permissions  []model.Permission
	ShowContacts bool
	Password     *string
	ExpiresAt    *int64
}

// ShareTokenRepo is the durable store of issued share links.
type ShareTokenRepo struct {
	db    *sqlx.DB
	clock timeutil.Clock
}

func NewShareTokenRepo(db *sqlx.DB, clock timeutil.Clock) *ShareTokenRepo {
	if clock == nil {
		clock = timeutil.SystemClock()
	}
	return &ShareTokenRepo{db: db, clock: clock}
}

// Create validates the input, hashes the optional password and persists a new
// record under a freshly generated token.
func (r *ShareTokenRepo) Create(ctx context.Context, input CreateShareTokenInput) (*model.ShareToken, error) {
	if strings.TrimSpace(input.ProjectID) == "" {
		return nil, appErr.Invalid("project_id", "must not be empty")
	}
	perms, err := model.NormalizePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}
	now := r.clock.Now().Unix()
	if input.ExpiresAt != nil && *input.ExpiresAt <= now {
		return nil, appErr.Invalid("expires_at", "must be in the future")
	}
	hash := ""
	if input.Password != nil {
		if len(*input.Password) > password.MaxLength {
			return nil, appErr.Invalid("password", "must be at most %d bytes", password.MaxLength)
		}
		hash, err = password.Hash(*input.Password)
		if err != nil {
			return nil, appErr.Invalid("password", "%v", err)
		}
	}
	token := &model.ShareToken{
		ID:           newID(),
		ProjectID:    input.ProjectID,
		Permissions:  perms,
		ShowContacts: input.ShowContacts,
		PasswordHash: hash,
		CreatedAt:    now,
		ExpiresAt:    input.ExpiresAt,
	}
	for attempt := 0; ; attempt++ {
		token.Token, err = newShareToken()
		if err != nil {
			return nil, appErr.Storage("generate token", err)
		}
		err = r.insert(ctx, token)
		if err == nil {
			return token, nil
		}
		if !appErr.IsConflict(err) || attempt+1 >= maxTokenAttempts {
			return nil, err
		}
	}
}

func (r *ShareTokenRepo) insert(ctx context.Context, token *model.ShareToken) error {
	showContacts := 0
	if token.ShowContacts {
		showContacts = 1
	}
	data := map[string]interface{}{
		"id":             token.ID,
		"token":          token.Token,
		"project_id":     token.ProjectID,
		"permissions":    model.EncodePermissions(token.Permissions),
		"show_contacts":  showContacts,
		"password_hash":  token.PasswordHash,
		"created_at":     token.CreatedAt,
		"expires_at":     toNullInt64(token.ExpiresAt),
		"revoked_at":     toNullInt64(nil),
		"view_count":     0,
		"download_count": 0,
		"last_viewed_at": toNullInt64(nil),
	}
	sqlStr, args, err := builder.BuildInsert(shareTokenTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return appErr.Storage("insert share token", err)
	}
	return nil
}

func (r *ShareTokenRepo) GetByToken(ctx context.Context, token string) (*model.ShareToken, error) {
	if token == "" {
		return nil, appErr.ErrNotFound
	}
	where := map[string]interface{}{"token": token}
	sqlStr, args, err := builder.BuildSelect(shareTokenTable, where, shareTokenFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	var rows []shareTokenRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, appErr.Storage("get share token", err)
	}
	if len(rows) == 0 {
		return nil, appErr.ErrNotFound
	}
	return rows[0].toModel(), nil
}

// ListByProject returns every link of a project, most recent first.
func (r *ShareTokenRepo) ListByProject(ctx context.Context, projectID string) ([]model.ShareToken, error) {
	where := map[string]interface{}{
		"project_id": projectID,
		"_orderby":   "created_at desc, id desc",
	}
	sqlStr, args, err := builder.BuildSelect(shareTokenTable, where, shareTokenFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	var rows []shareTokenRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, appErr.Storage("list share tokens", err)
	}
	items := make([]model.ShareToken, 0, len(rows))
	for i := range rows {
		items = append(items, *rows[i].toModel())
	}
	return items, nil
}

// RecordView bumps the view counter in a single statement so concurrent
// visitors never lose an update.
func (r *ShareTokenRepo) RecordView(ctx context.Context, token string) error {
	sqlStr := "UPDATE share_tokens SET view_count = view_count + 1, last_viewed_at = ? WHERE token = ?"
	args := []interface{}{r.clock.Now().Unix(), token}
	return r.execOne(ctx, "record view", sqlStr, args)
}

// RecordDownload bumps the download counter. Links without the downloadable
// permission never match.
func (r *ShareTokenRepo) RecordDownload(ctx context.Context, token string) error {
	sqlStr := "UPDATE share_tokens SET download_count = download_count + 1 WHERE token = ? AND permissions LIKE ?"
	args := []interface{}{token, downloadableMatch}
	return r.execOne(ctx, "record download", sqlStr, args)
}

// Revoke stamps revoked_at once. Revoking an already revoked link is a no-op.
func (r *ShareTokenRepo) Revoke(ctx context.Context, token string) error {
	sqlStr := "UPDATE share_tokens SET revoked_at = ? WHERE token = ? AND revoked_at IS NULL"
	args := []interface{}{r.clock.Now().Unix(), token}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return appErr.Storage("revoke share token", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return nil
	}
	_, err = r.GetByToken(ctx, token)
	return err
}

// DeleteInactiveBefore hard-deletes links revoked or expired before cutoff.
func (r *ShareTokenRepo) DeleteInactiveBefore(ctx context.Context, cutoff int64) (int64, error) {
	sqlStr := "DELETE FROM share_tokens WHERE (revoked_at IS NOT NULL AND revoked_at < ?) OR (expires_at IS NOT NULL AND expires_at < ?)"
	args := []interface{}{cutoff, cutoff}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, appErr.Storage("delete inactive share tokens", err)
	}
	return res.RowsAffected()
}

func (r *ShareTokenRepo) execOne(ctx context.Context, op, sqlStr string, args []interface{}) error {
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return appErr.Storage(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return appErr.Storage(op, err)
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func fromNullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	value := v.Int64
	return &value
}
