package model

type Permission string

const (
	PermissionView         Permission = "view"
	PermissionDownloadable Permission = "downloadable"
	PermissionEmbeddable   Permission = "embeddable"
)

// ShareToken is one issued public Gantt link.
type ShareToken struct {
	ID            string       `json:"id"`
	Token         string       `json:"token"`
	ProjectID     string       `json:"project_id"`
	Permissions   []Permission `json:"permissions"`
	ShowContacts  bool         `json:"show_contacts"`
	PasswordHash  string       `json:"-"`
	CreatedAt     int64        `json:"created_at"`
	ExpiresAt     *int64       `json:"expires_at,omitempty"`
	RevokedAt     *int64       `json:"revoked_at,omitempty"`
	ViewCount     int64        `json:"view_count"`
	DownloadCount int64        `json:"download_count"`
	LastViewedAt  *int64       `json:"last_viewed_at,omitempty"`
}

func (t *ShareToken) HasPermission(p Permission) bool {
	for _, item := range t.Permissions {
		if item == p {
			return true
		}
	}
	return false
}

func (t *ShareToken) HasPassword() bool {
	return t.PasswordHash != ""
}
