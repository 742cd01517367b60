package service

import (
	"github.com/xxxsen/ganttshare/internal/model"
)

// ShareState is derived from a link's fields at access time, never stored.
type ShareState string

const (
	ShareStateActive  ShareState = "active"
	ShareStateExpired ShareState = "expired"
	ShareStateRevoked ShareState = "revoked"
)

type DenialReason string

const (
	DenialNotFound          DenialReason = "NOT_FOUND"
	DenialExpired           DenialReason = "EXPIRED"
	DenialRevoked           DenialReason = "REVOKED"
	DenialPasswordRequired  DenialReason = "PASSWORD_REQUIRED"
	DenialPasswordIncorrect DenialReason = "PASSWORD_INCORRECT"
	DenialNotPermitted      DenialReason = "NOT_PERMITTED"
)

type Grant struct {
	Permissions  []model.Permission `json:"permissions"`
	ShowContacts bool               `json:"show_contacts"`
}

type Denial struct {
	Reason DenialReason `json:"reason"`
}

// Access is the outcome of a visitor request: exactly one of Grant or Denial is set.
type Access struct {
	Grant  *Grant  `json:"grant,omitempty"`
	Denial *Denial `json:"denial,omitempty"`
}

func (a *Access) Granted() bool {
	return a != nil && a.Grant != nil
}

func (a *Access) Reason() DenialReason {
	if a == nil || a.Denial == nil {
		return ""
	}
	return a.Denial.Reason
}

func granted(token *model.ShareToken) *Access {
	perms := make([]model.Permission, len(token.Permissions))
	copy(perms, token.Permissions)
	return &Access{Grant: &Grant{Permissions: perms, ShowContacts: token.ShowContacts}}
}

func denied(reason DenialReason) *Access {
	return &Access{Denial: &Denial{Reason: reason}}
}

// StateOf evaluates a link against now (unix seconds). Revocation wins over expiry.
func StateOf(token *model.ShareToken, now int64) ShareState {
	if token.RevokedAt != nil {
		return ShareStateRevoked
	}
	if token.ExpiresAt != nil && *token.ExpiresAt <= now {
		return ShareStateExpired
	}
	return ShareStateActive
}
