package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersGetText(t *testing.T) {
	h := newMethodHandler().
		On("users.get", vkResponse(`[{"uid":1,"first_name":"Pavel","last_name":"Durov","screen_name":"durov","online":1}]`))
	env := setupTestEnv(t, h)

	out, _, err := env.run("users", "get", "durov", "--fields", "screen_name,online")
	require.NoError(t, err)

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Pavel Durov")
	assert.Contains(t, out, "durov")
	assert.Contains(t, out, "yes")

	calls := h.calls("users.get")
	require.Len(t, calls, 1)
	assert.Equal(t, "durov", calls[0].Query.Get("uids"))
	assert.Equal(t, "screen_name,online", calls[0].Query.Get("fields"))
	assert.Equal(t, testToken, calls[0].Query.Get("access_token"))
}

func TestUsersGetJSONKeepsArgumentOrder(t *testing.T) {
	h := newMethodHandler().
		On("users.get", vkResponse(`[{"uid":2,"first_name":"B"},{"uid":1,"first_name":"A"}]`))
	env := setupTestEnv(t, h)

	out, _, err := env.run("users", "get", "2,1", "https://vk.com/id3", "-o", "json")
	require.NoError(t, err)

	var users []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	require.Len(t, users, 2)
	assert.EqualValues(t, 2, users[0]["uid"])

	calls := h.calls("users.get")
	require.Len(t, calls, 1)
	if got := calls[0].Query.Get("uids"); got != "2,1,3" {
		t.Errorf("uids = %q, want %q", got, "2,1,3")
	}
}

func TestUsersGetRejectsCommunity(t *testing.T) {
	env := setupTestEnv(t, nil)

	_, stderr, err := env.run("users", "get", "club1")
	require.Error(t, err)
	assert.Contains(t, stderr, "a community, not a user")
	assert.Equal(t, exitUsage, ExitCode(err))
	assert.Zero(t, env.handler.total())
}

func TestUsersGetUnknownFieldSuggests(t *testing.T) {
	env := setupTestEnv(t, nil)

	_, stderr, err := env.run("users", "get", "1", "--fields", "screen_nam")
	require.Error(t, err)
	assert.Contains(t, stderr, "screen_name")
	assert.Equal(t, exitUsage, ExitCode(err))
}

func TestUsersGetInvalidNameCase(t *testing.T) {
	env := setupTestEnv(t, nil)

	_, _, err := env.run("users", "get", "1", "--name-case", "xyz")
	require.Error(t, err)
	assert.Zero(t, env.handler.total())
}

func TestUsersGetEmpty(t *testing.T) {
	env := setupTestEnv(t, newMethodHandler().On("users.get", vkResponse(`[]`)))

	out, stderr, err := env.run("users", "get", "999")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "No users found.")
}

func TestUsersSearch(t *testing.T) {
	h := newMethodHandler().
		On("users.search", vkResponse(`[25,{"uid":1,"first_name":"Pavel","last_name":"Durov"}]`))
	env := setupTestEnv(t, h)

	out, _, err := env.run("users", "search", "Pavel", "--count", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "25 users found")
	assert.Contains(t, out, "Pavel Durov")

	calls := h.calls("users.search")
	require.Len(t, calls, 1)
	assert.Equal(t, "Pavel", calls[0].Query.Get("q"))
	assert.Equal(t, "5", calls[0].Query.Get("count"))
}

func TestUsersSearchJSON(t *testing.T) {
	h := newMethodHandler().
		On("users.search", vkResponse(`[25,{"uid":1,"first_name":"Pavel"}]`))
	env := setupTestEnv(t, h)

	out, _, err := env.run("users", "search", "Pavel", "--json")
	require.NoError(t, err)

	var list struct {
		Count int              `json:"count"`
		Users []map[string]any `json:"users"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Equal(t, 25, list.Count)
	assert.Len(t, list.Users, 1)
}

func TestUsersIsAppUser(t *testing.T) {
	h := newMethodHandler().On("isAppUser", vkResponse(`1`))
	env := setupTestEnv(t, h)

	out, _, err := env.run("users", "is-app-user", "5")
	require.NoError(t, err)
	assert.Equal(t, "yes\n", out)
	assert.Equal(t, "5", h.calls("isAppUser")[0].Query.Get("uid"))
}

func TestUsersIsAppUserCurrentOmitsUID(t *testing.T) {
	h := newMethodHandler().On("isAppUser", vkResponse(`0`))
	env := setupTestEnv(t, h)

	out, _, err := env.run("users", "is-app-user")
	require.NoError(t, err)
	assert.Equal(t, "no\n", out)
	assert.False(t, h.calls("isAppUser")[0].Query.Has("uid"))
}

func TestUsersSettingsDecodesScopes(t *testing.T) {
	env := setupTestEnv(t, newMethodHandler().On("getUserSettings", vkResponse(`4098`)))

	out, _, err := env.run("users", "settings")
	require.NoError(t, err)
	assert.Contains(t, out, "Mask: 4098")
	assert.Contains(t, out, "friends, messages")
}

func TestUsersResolveScreenNameOnce(t *testing.T) {
	h := newMethodHandler().
		On("users.get", vkResponse(`[{"uid":42,"screen_name":"someone"}]`)).
		On("isAppUser", vkResponse(`1`))
	env := setupTestEnv(t, h)

	_, _, err := env.run("users", "is-app-user", "someone")
	require.NoError(t, err)
	assert.Len(t, h.calls("users.get"), 1)
	if got := h.calls("isAppUser")[0].Query.Get("uid"); got != "42" {
		t.Errorf("uid = %q, want 42", got)
	}
}

func TestUsersAPIErrorExitCode(t *testing.T) {
	env := setupTestEnv(t, newMethodHandler().On("users.get", vkError(5, "User authorization failed")))

	_, stderr, err := env.run("users", "get", "1")
	require.Error(t, err)
	assert.Contains(t, stderr, "API error 5")
	assert.Contains(t, stderr, "vk auth login")
	assert.Equal(t, exitAuth, ExitCode(err))
}

func TestUsersAPIErrorStructured(t *testing.T) {
	env := setupTestEnv(t, newMethodHandler().On("users.get", vkError(15, "Access denied")))

	_, stderr, err := env.run("users", "get", "1", "-o", "json")
	require.Error(t, err)
	assert.Equal(t, exitForbidden, ExitCode(err))

	var payload map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(stderr), &payload))
	assert.Equal(t, "forbidden", payload["error"]["code"])
	assert.True(t, strings.Contains(stderr, "Access denied"))
}

func TestUsersScreenNameCachedAcrossRuns(t *testing.T) {
	h := newMethodHandler().
		On("users.get", vkResponse(`[{"uid":42,"screen_name":"someone"}]`)).
		On("isAppUser", vkResponse(`1`))
	env := setupTestEnv(t, h)

	for range 2 {
		_, _, err := env.run("users", "is-app-user", "someone")
		require.NoError(t, err)
	}
	assert.Len(t, h.calls("users.get"), 1)
	assert.Len(t, h.calls("isAppUser"), 2)
}

func TestUsersScreenNameCacheDisabled(t *testing.T) {
	h := newMethodHandler().
		On("users.get", vkResponse(`[{"uid":42,"screen_name":"someone"}]`)).
		On("isAppUser", vkResponse(`1`))
	env := setupTestEnv(t, h)
	t.Setenv("VK_NO_CACHE", "1")

	for range 2 {
		_, _, err := env.run("users", "is-app-user", "someone")
		require.NoError(t, err)
	}
	assert.Len(t, h.calls("users.get"), 2)
}
