package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemote(t *testing.T) {
	require.NoError(t, Remote(nil))

	base := errors.New("connection reset")
	err := Remote(base)
	require.ErrorIs(t, err, ErrRemote)
	require.ErrorIs(t, err, base)

	require.Same(t, ErrNotFound, Remote(ErrNotFound))
	require.Equal(t, err, Remote(err))
}

func TestClasses(t *testing.T) {
	require.ErrorIs(t, ErrNameTaken, ErrValidation)
	require.ErrorIs(t, ErrInvalidKind, ErrValidation)
	require.ErrorIs(t, Validation("empty name"), ErrValidation)

	require.True(t, IsAuth(ErrForbidden))
	require.True(t, IsAuth(ErrUnauthenticated))
	require.False(t, IsAuth(ErrValidation))
}
