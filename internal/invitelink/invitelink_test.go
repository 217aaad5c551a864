package invitelink

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildParse(t *testing.T) {
	b, err := NewBuilder("")
	require.NoError(t, err)

	link := b.Build("abc_DEF-123")
	require.Equal(t, "aulaviva://invite?token=abc_DEF-123", link)

	tok, err := Parse(link)
	require.NoError(t, err)
	require.Equal(t, "abc_DEF-123", tok)
}

func TestBuild_HTTPSBaseKeepsParams(t *testing.T) {
	b, err := NewBuilder("https://aulaviva.app/invite?src=mail")
	require.NoError(t, err)
	link := b.Build("tok")
	require.Contains(t, link, "https://aulaviva.app/invite?")
	require.Contains(t, link, "src=mail")
	require.Contains(t, link, "token=tok")
}

func TestNewBuilder_RequiresScheme(t *testing.T) {
	_, err := NewBuilder("aulaviva.app/invite")
	require.Error(t, err)
}

func TestParse(t *testing.T) {
	tok, err := Parse("  bare-token ")
	require.NoError(t, err)
	require.Equal(t, "bare-token", tok)

	_, err = Parse("aulaviva://invite?other=1")
	require.ErrorIs(t, err, ErrNoToken)

	_, err = Parse("")
	require.ErrorIs(t, err, ErrNoToken)
}
