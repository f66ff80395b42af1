package lobby

import (
	"testing"

	"github.com/jason-s-yu/tactics-relay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRole(t *testing.T) {
	s := newTestStore("AB12")
	l, err := s.CreateLobby("a", "")
	require.NoError(t, err)
	_, err = s.JoinLobby("b", "AB12")
	require.NoError(t, err)

	cases := []struct {
		name   string
		conn   string
		want   models.Role
		wantOK bool
	}{
		{name: "first joiner", conn: "a", want: models.PlayerOne, wantOK: true},
		{name: "second joiner", conn: "b", want: models.PlayerTwo, wantOK: true},
		{name: "stranger", conn: "c", wantOK: false},
		{name: "empty id", conn: "", wantOK: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			role, ok := ResolveRole(l, tc.conn)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, role)
		})
	}
}

func TestResolveRoleFollowsRosterAfterDeparture(t *testing.T) {
	s := newTestStore("AB12")
	l, err := s.CreateLobby("a", "")
	require.NoError(t, err)
	_, err = s.JoinLobby("b", "AB12")
	require.NoError(t, err)

	_, err = s.Leave("a", "AB12")
	require.NoError(t, err)

	role, ok := ResolveRole(l, "b")
	require.True(t, ok)
	assert.Equal(t, models.PlayerOne, role)
}
