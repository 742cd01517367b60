package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/ganttshare/internal/pkg/errors"
)

func TestNormalizePermissions_CanonicalOrder(t *testing.T) {
	perms, err := NormalizePermissions([]Permission{"embeddable", " VIEW ", "view", "downloadable"})
	require.NoError(t, err)
	require.Equal(t, []Permission{PermissionView, PermissionDownloadable, PermissionEmbeddable}, perms)
	require.Equal(t, "view,downloadable,embeddable", EncodePermissions(perms))
	require.Equal(t, perms, DecodePermissions("view,downloadable,embeddable"))
}

func TestNormalizePermissions_Rejects(t *testing.T) {
	cases := map[string][]Permission{
		"empty":        nil,
		"missing view": {PermissionDownloadable},
		"unknown":      {PermissionView, "edit"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizePermissions(input)
			require.ErrorIs(t, err, appErr.ErrInvalid)
		})
	}
}
