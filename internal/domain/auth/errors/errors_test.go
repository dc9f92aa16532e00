package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorHelpers(t *testing.T) {
	err := NewInvalidArgument("bad")
	require.True(t, IsInvalidArgument(err))
	require.Equal(t, "bad", Message(err))

	wrapped := WrapInternal(err, "ctx")
	require.True(t, IsInternal(wrapped))
	require.False(t, IsInvalidArgument(wrapped))
}

func TestValidationError_Fields(t *testing.T) {
	err := NewValidation("all fields are required", map[string]string{
		"username": "is required",
		"email":    "is required",
	})
	require.True(t, IsInvalidArgument(err))
	require.Equal(t, "invalid argument: all fields are required (email is required, username is required)", err.Error())

	wrapped := errors.Join(errors.New("outer"), err)
	require.Equal(t, map[string]string{"username": "is required", "email": "is required"}, FieldErrors(wrapped))
	require.Nil(t, FieldErrors(ErrNotFound))
}

func TestMessage_StripsSentinel(t *testing.T) {
	require.Equal(t, "user does not exist", Message(NewNotFound("user does not exist")))
	require.Equal(t, "password incorrect", Message(NewInvalidCredentials("password incorrect")))
	require.Equal(t, "already exists", Message(ErrAlreadyExists))
	require.True(t, IsAlreadyExists(NewAlreadyExists("dup")))
	require.True(t, IsInvalidToken(ErrInvalidToken))
}
