package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/ganttshare/internal/model"
	"github.com/xxxsen/ganttshare/internal/pkg/errcode"
	"github.com/xxxsen/ganttshare/internal/pkg/response"
	"github.com/xxxsen/ganttshare/internal/service"
)

const sharePasswordHeader = "X-Share-Password"

type ShareHandler struct {
	shares *service.ShareService
}

func NewShareHandler(shares *service.ShareService) *ShareHandler {
	return &ShareHandler{shares: shares}
}

type issueShareRequest struct {
	Permissions   []string `json:"permissions"`
	ShowContacts  bool     `json:"show_contacts"`
	Password      *string  `json:"password"`
	ExpiresInDays *int     `json:"expires_in_days"`
}

type downloadShareRequest struct {
	Password *string `json:"password"`
}

func (h *ShareHandler) Issue(c *gin.Context) {
	var req issueShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	perms := make([]model.Permission, 0, len(req.Permissions))
	for _, item := range req.Permissions {
		perms = append(perms, model.Permission(item))
	}
	result, err := h.shares.Issue(c.Request.Context(), getUserID(c), c.Param("project_id"), service.IssueShareInput{
		Permissions:   perms,
		ShowContacts:  req.ShowContacts,
		Password:      req.Password,
		ExpiresInDays: req.ExpiresInDays,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *ShareHandler) List(c *gin.Context) {
	items, err := h.shares.List(c.Request.Context(), getUserID(c), c.Param("project_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}

func (h *ShareHandler) Revoke(c *gin.Context) {
	if err := h.shares.Revoke(c.Request.Context(), getUserID(c), c.Param("project_id"), c.Param("token")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *ShareHandler) PublicResolve(c *gin.Context) {
	access, err := h.shares.Resolve(c.Request.Context(), c.Param("token"), visitorPassword(c, nil))
	if err != nil {
		handleError(c, err)
		return
	}
	if !access.Granted() {
		writeDenial(c, access.Reason())
		return
	}
	response.Success(c, access.Grant)
}

func (h *ShareHandler) PublicDownload(c *gin.Context) {
	var req downloadShareRequest
	if c.Request.ContentLength != 0 && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, errcode.ErrInvalid, "invalid request")
			return
		}
	}
	access, err := h.shares.RecordDownload(c.Request.Context(), c.Param("token"), visitorPassword(c, req.Password))
	if err != nil {
		handleError(c, err)
		return
	}
	if !access.Granted() {
		writeDenial(c, access.Reason())
		return
	}
	response.Success(c, gin.H{"ok": true, "grant": access.Grant})
}

// visitorPassword prefers an explicit body value over the header. Passwords are
// never read from the URL. An empty value counts as not supplied.
func visitorPassword(c *gin.Context, fromBody *string) *string {
	candidates := []string{c.GetHeader(sharePasswordHeader)}
	if fromBody != nil {
		candidates = append([]string{*fromBody}, candidates...)
	}
	for _, value := range candidates {
		if strings.TrimSpace(value) != "" {
			v := value
			return &v
		}
	}
	return nil
}

// writeDenial renders a visitor-facing denial. Missing, expired and revoked
// links share one neutral message.
func writeDenial(c *gin.Context, reason service.DenialReason) {
	switch reason {
	case service.DenialPasswordRequired:
		response.Error(c, errcode.ErrSharePasswordRequired, "this link is password protected")
	case service.DenialPasswordIncorrect:
		response.Error(c, errcode.ErrSharePasswordIncorrect, "incorrect password")
	case service.DenialNotPermitted:
		response.Error(c, errcode.ErrShareNotPermitted, "this link does not allow downloads")
	default:
		response.Error(c, errcode.ErrShareUnavailable, "this link is invalid, expired or revoked")
	}
}
