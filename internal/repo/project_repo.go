package repo

import (
	"context"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/ganttshare/internal/model"
	"github.com/xxxsen/ganttshare/internal/pkg/dbutil"
	appErr "github.com/xxxsen/ganttshare/internal/pkg/errors"
)

// ProjectRepo mirrors project ownership maintained by the project-management backend.
type ProjectRepo struct {
	db *sqlx.DB
}

func NewProjectRepo(db *sqlx.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

func (r *ProjectRepo) Upsert(ctx context.Context, project *model.Project) error {
	if _, err := r.GetByID(ctx, project.ID); err == nil {
		update := map[string]interface{}{"owner_id": project.OwnerID, "name": project.Name}
		sqlStr, args, err := builder.BuildUpdate("projects", map[string]interface{}{"id": project.ID}, update)
		if err != nil {
			return err
		}
		sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
		if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
			return appErr.Storage("update project", err)
		}
		return nil
	} else if !appErr.IsNotFound(err) {
		return err
	}
	data := map[string]interface{}{
		"id":       project.ID,
		"owner_id": project.OwnerID,
		"name":     project.Name,
		"ctime":    project.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("projects", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return appErr.Storage("insert project", err)
	}
	return nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, projectID string) (*model.Project, error) {
	where := map[string]interface{}{"id": projectID}
	sqlStr, args, err := builder.BuildSelect("projects", where, []string{"id", "owner_id", "name", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, appErr.Storage("get project", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, appErr.Storage("get project", err)
		}
		return nil, appErr.ErrNotFound
	}
	var project model.Project
	if err := rows.Scan(&project.ID, &project.OwnerID, &project.Name, &project.Ctime); err != nil {
		return nil, appErr.Storage("scan project", err)
	}
	return &project, nil
}

// IsOwner reports whether userID may manage share links of projectID.
// Unknown projects yield ErrNotFound.
func (r *ProjectRepo) IsOwner(ctx context.Context, projectID, userID string) (bool, error) {
	project, err := r.GetByID(ctx, projectID)
	if err != nil {
		return false, err
	}
	return project.OwnerID == userID, nil
}
