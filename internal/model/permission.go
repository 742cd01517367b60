package model

import (
	"strings"

	appErr "github.com/xxxsen/ganttshare/internal/pkg/errors"
)

var permissionOrder = []Permission{PermissionView, PermissionDownloadable, PermissionEmbeddable}

// NormalizePermissions validates a requested permission set and returns it
// deduplicated in canonical order. view is mandatory.
func NormalizePermissions(items []Permission) ([]Permission, error) {
	if len(items) == 0 {
		return nil, appErr.Invalid("permissions", "must not be empty")
	}
	seen := make(map[Permission]struct{}, len(items))
	for _, item := range items {
		p := Permission(strings.ToLower(strings.TrimSpace(string(item))))
		if !isKnownPermission(p) {
			return nil, appErr.Invalid("permissions", "unknown permission %q", string(item))
		}
		seen[p] = struct{}{}
	}
	if _, ok := seen[PermissionView]; !ok {
		return nil, appErr.Invalid("permissions", "view is required")
	}
	result := make([]Permission, 0, len(seen))
	for _, p := range permissionOrder {
		if _, ok := seen[p]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

func isKnownPermission(p Permission) bool {
	for _, known := range permissionOrder {
		if p == known {
			return true
		}
	}
	return false
}

func EncodePermissions(items []Permission) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, string(item))
	}
	return strings.Join(parts, ",")
}

func DecodePermissions(raw string) []Permission {
	result := make([]Permission, 0, 3)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		result = append(result, Permission(part))
	}
	return result
}
