package cmd

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkcli/vk-cli/internal/config"
)

const loginToken = "533bacf01e11f55b536a565b57531ac114461ae8"

func ownerHandler() *methodHandler {
	return newMethodHandler().
		On("users.get", vkResponse(`[{"uid":42,"first_name":"Pavel","last_name":"Durov"}]`))
}

func TestAuthLoginWithToken(t *testing.T) {
	h := ownerHandler()
	env := setupTestEnv(t, h).withoutEnvToken()

	out, _, err := env.run("auth", "login", "--access-token", loginToken)
	require.NoError(t, err)
	assert.Equal(t, "Logged in as id42 (profile \"default\")\n", out)

	calls := h.calls("users.get")
	require.Len(t, calls, 1)
	assert.Equal(t, loginToken, calls[0].Query.Get("access_token"))
	assert.False(t, calls[0].Query.Has("uids"))

	account, err := config.LoadProfile("default")
	require.NoError(t, err)
	assert.Equal(t, loginToken, account.AccessToken)
	assert.EqualValues(t, 42, account.UserID)
	assert.Zero(t, account.ExpiresAt)
}

func TestAuthLoginNoVerify(t *testing.T) {
	env := setupTestEnv(t, nil).withoutEnvToken()

	out, _, err := env.run("auth", "login", "--at", loginToken, "--no-verify", "--profile", "work")
	require.NoError(t, err)
	assert.Equal(t, "Token saved to profile \"work\"\n", out)
	assert.Zero(t, env.handler.total())

	current, err := config.CurrentProfile()
	require.NoError(t, err)
	assert.Equal(t, "work", current)
}

func TestAuthLoginRedirectURL(t *testing.T) {
	env := setupTestEnv(t, ownerHandler()).withoutEnvToken()

	redirect := "https://oauth.vk.com/blank.html#access_token=" + loginToken + "&expires_in=86400&user_id=7"
	out, _, err := env.run("auth", "login", "--redirect-url", redirect, "--json")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "default", result["profile"])
	assert.EqualValues(t, 7, result["user_id"], "the redirect user id wins over the lookup")

	account, err := config.LoadProfile("default")
	require.NoError(t, err)
	assert.Greater(t, account.ExpiresAt, account.SavedAt)
	assert.EqualValues(t, 86400, account.ExpiresAt-account.SavedAt)
}

func TestAuthLoginRedirectError(t *testing.T) {
	env := setupTestEnv(t, nil).withoutEnvToken()

	_, stderr, err := env.run("auth", "login", "--redirect-url",
		"https://oauth.vk.com/blank.html#error=access_denied&error_description=User+denied+your+request")
	require.Error(t, err)
	assert.Equal(t, exitAuth, ExitCode(err))
	assert.Contains(t, stderr, "access_denied")
}

func TestAuthLoginPrompt(t *testing.T) {
	env := setupTestEnv(t, ownerHandler()).withoutEnvToken().interactive(loginToken + "\n")

	_, stderr, err := env.run("auth", "login")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Access token or redirect URL:")

	account, err := config.LoadProfile("default")
	require.NoError(t, err)
	assert.Equal(t, loginToken, account.AccessToken)
}

func TestAuthLoginPromptAcceptsRedirect(t *testing.T) {
	input := "https://oauth.vk.com/blank.html#access_token=" + loginToken + "&user_id=9\n"
	env := setupTestEnv(t, ownerHandler()).withoutEnvToken().interactive(input)

	out, _, err := env.run("auth", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "id9")
}

func TestAuthLoginNeedsToken(t *testing.T) {
	env := setupTestEnv(t, nil).withoutEnvToken()

	_, stderr, err := env.run("auth", "login")
	require.Error(t, err)
	assert.Contains(t, stderr, "no token given")
}

func TestAuthLoginRejectsTwoSources(t *testing.T) {
	env := setupTestEnv(t, nil).withoutEnvToken()

	_, stderr, err := env.run("auth", "login", "--access-token", loginToken, "--redirect-url", "#access_token=x")
	require.Error(t, err)
	assert.Contains(t, stderr, "use only one of")
}

func TestAuthLoginBadTokenNotSaved(t *testing.T) {
	env := setupTestEnv(t, newMethodHandler().On("users.get", vkError(5, "User authorization failed: invalid access_token")))
	env.withoutEnvToken()

	_, _, err := env.run("auth", "login", "--access-token", loginToken)
	require.Error(t, err)
	assert.Equal(t, exitAuth, ExitCode(err))

	_, err = config.LoadProfile("default")
	assert.ErrorIs(t, err, config.ErrNotConfigured)
}

func TestAuthStatusEnvToken(t *testing.T) {
	env := setupTestEnv(t, nil)

	out, _, err := env.run("auth", "status", "-o", "json")
	require.NoError(t, err)

	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "env", status["source"])
	token, _ := status["token"].(string)
	assert.True(t, strings.HasPrefix(token, "test"))
	assert.True(t, strings.HasSuffix(token, "6789"))
	assert.NotContains(t, out, testToken)
}

func TestAuthStatusProfile(t *testing.T) {
	env := setupTestEnv(t, nil).withoutEnvToken()
	require.NoError(t, config.SaveProfile("default", config.Account{
		AccessToken: loginToken,
		UserID:      42,
		Scope:       []string{"friends", "offline"},
	}))

	out, _, err := env.run("auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "profile")
	assert.Contains(t, out, "id42")
	assert.Contains(t, out, "never")
	assert.Contains(t, out, "friends,offline")
}

func TestAuthStatusNotConfigured(t *testing.T) {
	env := setupTestEnv(t, nil).withoutEnvToken()

	_, stderr, err := env.run("auth", "status")
	require.Error(t, err)
	assert.Equal(t, exitAuth, ExitCode(err))
	assert.Contains(t, stderr, "vk auth login")
}

func TestAuthProfilesUseLogout(t *testing.T) {
	env := setupTestEnv(t, nil).withoutEnvToken()
	require.NoError(t, config.SaveProfile("home", config.Account{AccessToken: loginToken}))
	require.NoError(t, config.SaveProfile("work", config.Account{AccessToken: loginToken}))

	out, _, err := env.run("auth", "profiles")
	require.NoError(t, err)
	assert.Equal(t, "  home\n* work\n", out)

	out, _, err = env.run("auth", "use", "home")
	require.NoError(t, err)
	assert.Equal(t, "Now using profile \"home\"\n", out)

	_, _, err = env.run("auth", "use", "missing")
	require.Error(t, err)

	out, _, err = env.run("auth", "logout")
	require.NoError(t, err)
	assert.Equal(t, "Removed profile \"home\"\n", out)

	current, err := config.CurrentProfile()
	require.NoError(t, err)
	assert.Equal(t, "work", current)
}

func TestAuthProfilesEmpty(t *testing.T) {
	env := setupTestEnv(t, nil).withoutEnvToken()

	out, stderr, err := env.run("auth", "profiles")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "No profiles.")
}

func TestAuthURL(t *testing.T) {
	env := setupTestEnv(t, nil)

	out, _, err := env.run("auth", "url", "--app-id", "12345", "--scope", "friends,offline", "--display", "popup")
	require.NoError(t, err)

	u, err := url.Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "12345", q.Get("client_id"))
	assert.Equal(t, "friends,offline", q.Get("scope"))
	assert.Equal(t, "popup", q.Get("display"))
	assert.Equal(t, "token", q.Get("response_type"))
}

func TestAuthURLRequiresAppID(t *testing.T) {
	env := setupTestEnv(t, nil)

	_, _, err := env.run("auth", "url")
	require.Error(t, err)
	assert.Equal(t, exitUsage, ExitCode(err))
}
