package log

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	l, err := New("warn")
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.InfoLevel))
	require.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = New("")
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = New("chatty")
	require.Error(t, err)
}

func TestIdentity_HashesValue(t *testing.T) {
	f := Identity("user", "Ann@Example.com")
	require.Equal(t, "user", f.Key)
	require.NotContains(t, f.String, "ann")
	require.Len(t, f.String, 64)
	require.Equal(t, f.String, Identity("user", "ann@example.com").String)
}
