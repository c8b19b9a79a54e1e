package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vkcli/vk-cli/internal/api"
	"github.com/vkcli/vk-cli/internal/auth"
	"github.com/vkcli/vk-cli/internal/config"
	"github.com/vkcli/vk-cli/internal/iocontext"
	"github.com/vkcli/vk-cli/internal/outfmt"
	"github.com/vkcli/vk-cli/internal/validation"
)

// defaultLoginScope is requested when --scope is not given.
var defaultLoginScope = []string{"friends", "messages", "groups", "wall", "offline"}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage access tokens",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthURLCmd())
	cmd.AddCommand(newAuthProfilesCmd())
	cmd.AddCommand(newAuthUseCmd())

	return cmd
}

type loginOptions struct {
	token       string
	redirectURL string
	browser     bool
	appID       int64
	scope       []string
	userID      int64
	expiresIn   time.Duration
	wait        time.Duration
	noVerify    bool
}

func newAuthLoginCmd() *cobra.Command {
	var o loginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token in the keyring",
		Long: strings.TrimSpace(`
Store an access token under a profile (--profile, default "default") and make
it the current one. The token can be given with --access-token, pasted at the prompt,
read from the URL the authorize dialog redirected to (--redirect-url), or
obtained by opening the dialog in a browser (--browser --app-id N).
`),
		Example: strings.TrimSpace(`
  vk auth login --access-token 533bacf01e11f55b536a565b57531ac114461ae8736d6506a3
  vk auth login --redirect-url 'https://oauth.vk.com/blank.html#access_token=...&user_id=1'
  vk auth login --browser --app-id 12345 --scope friends,messages,offline
  vk auth login --profile work
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, o)
		}),
	}

	cmd.Flags().StringVar(&o.token, "access-token", "", "Access token to store")
	cmd.Flags().StringVar(&o.redirectURL, "redirect-url", "", "URL (or fragment) the authorize dialog redirected to")
	cmd.Flags().BoolVar(&o.browser, "browser", false, "Authorize in a browser through a local callback")
	cmd.Flags().Int64Var(&o.appID, "app-id", 0, "Application id for --browser")
	cmd.Flags().StringSliceVar(&o.scope, "scope", nil, "Permissions for --browser (default "+strings.Join(defaultLoginScope, ",")+")")
	cmd.Flags().Int64Var(&o.userID, "user-id", 0, "User id of the token owner, when known")
	cmd.Flags().DurationVar(&o.expiresIn, "expires-in", 0, "Token lifetime; 0 for offline tokens")
	cmd.Flags().DurationVar(&o.wait, "wait", 5*time.Minute, "How long --browser waits for the redirect")
	cmd.Flags().BoolVar(&o.noVerify, "no-verify", false, "Store the token without checking it against the API")
	flagAlias(cmd.Flags(), "access-token", "at")
	_ = cmd.RegisterFlagCompletionFunc("scope", cobra.FixedCompletions(auth.Scopes, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func runLogin(cmd *cobra.Command, o loginOptions) error {
	ctx := cmd.Context()
	profile := strings.TrimSpace(flags.Profile)
	if profile == "" {
		profile = config.DefaultProfile
	}
	if err := config.ValidateProfileName(profile); err != nil {
		return err
	}
	scope := o.scope
	if len(scope) == 0 && o.browser {
		scope = defaultLoginScope
	}

	tok, err := obtainToken(cmd, o, scope)
	if err != nil {
		return err
	}
	if o.userID > 0 {
		tok.UserID = o.userID
	}
	if o.expiresIn > 0 {
		tok.ExpiresIn = int64(o.expiresIn / time.Second)
	}

	if !o.noVerify {
		uid, err := verifyToken(ctx, tok.AccessToken)
		if err != nil {
			return fmt.Errorf("token check failed: %w", err)
		}
		if tok.UserID == 0 {
			tok.UserID = uid
		}
	}

	account := tok.Account(o.appID, scope, time.Now())
	if err := config.SaveProfile(profile, account); err != nil {
		return err
	}
	slog.Debug("saved profile", "profile", profile, "user_id", account.UserID)

	result := map[string]any{
		"profile":    profile,
		"user_id":    account.UserID,
		"expires_at": account.ExpiresAt,
		"scope":      account.Scope,
	}
	return render(cmd, result, func(*outfmt.Formatter) error {
		if account.UserID > 0 {
			printText(cmd, "Logged in as id%d (profile %q)\n", account.UserID, profile)
		} else {
			printText(cmd, "Token saved to profile %q\n", profile)
		}
		return nil
	})
}

func obtainToken(cmd *cobra.Command, o loginOptions, scope []string) (auth.Token, error) {
	modes := 0
	for _, set := range []bool{o.token != "", o.redirectURL != "", o.browser} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return auth.Token{}, fmt.Errorf("use only one of --access-token, --redirect-url and --browser")
	}

	switch {
	case o.token != "":
		return auth.Token{AccessToken: strings.TrimSpace(o.token)}, nil
	case o.redirectURL != "":
		return auth.ParseRedirect(o.redirectURL, "")
	case o.browser:
		return browserLogin(cmd, o, scope)
	}

	if !canPrompt(cmd) {
		return auth.Token{}, fmt.Errorf("no token given: pass --access-token, --redirect-url or --browser")
	}
	input, err := iocontext.GetIO(cmd.Context()).PromptSecret("Access token or redirect URL: ")
	if err != nil {
		return auth.Token{}, err
	}
	if input == "" {
		return auth.Token{}, fmt.Errorf("access token cannot be empty")
	}
	if strings.Contains(input, "access_token=") {
		return auth.ParseRedirect(input, "")
	}
	return auth.Token{AccessToken: input}, nil
}

func browserLogin(cmd *cobra.Command, o loginOptions, scope []string) (auth.Token, error) {
	if o.appID <= 0 {
		return auth.Token{}, fmt.Errorf("--browser requires --app-id")
	}
	server, err := auth.NewCallbackServer()
	if err != nil {
		return auth.Token{}, err
	}
	redirect, err := server.Listen()
	if err != nil {
		return auth.Token{}, err
	}
	authURL, err := auth.AuthorizeURL(auth.AuthorizeOptions{
		AppID:       o.appID,
		Scope:       scope,
		RedirectURI: redirect,
		State:       server.State(),
		APIVersion:  api.DefaultConfig().APIVersion,
	})
	if err != nil {
		return auth.Token{}, err
	}

	ioStreams := iocontext.GetIO(cmd.Context())
	_, _ = fmt.Fprintf(ioStreams.ErrOut, "Open this URL to authorize:\n  %s\n", authURL)
	if err := auth.OpenBrowser(authURL); err != nil {
		slog.Debug("could not open browser", "error", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), o.wait)
	defer cancel()
	tok, err := server.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return auth.Token{}, fmt.Errorf("no authorization within %s", o.wait)
	}
	return tok, err
}

// verifyToken calls users.get with no ids, which returns the token owner.
func verifyToken(ctx context.Context, token string) (int64, error) {
	c, err := api.New(token, newClientFactory().config())
	if err != nil {
		return 0, err
	}
	env, err := c.Call(ctx, "users.get", nil)
	if err != nil {
		return 0, err
	}
	users := api.UsersFromJSON(env.Response(), false)
	if len(users) == 0 {
		return 0, nil
	}
	return users[0].ID().Or(0), nil
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which token commands will use",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			creds, err := config.ResolveCredentials(flags.Token, flags.Profile)
			if err != nil {
				return err
			}
			status := map[string]any{
				"source":     creds.Source,
				"profile":    creds.Profile,
				"user_id":    creds.UserID,
				"expires_at": creds.ExpiresAt,
				"token":      maskToken(creds.Token),
			}
			var scope []string
			if creds.Source == config.SourceProfile {
				if account, err := config.LoadProfile(creds.Profile); err == nil {
					scope = account.Scope
					status["scope"] = scope
					status["app_id"] = account.AppID
				}
			}
			return render(cmd, status, func(f *outfmt.Formatter) error {
				f.StartTable([]string{"FIELD", "VALUE"})
				f.Row("source", string(creds.Source))
				if creds.Profile != "" {
					f.Row("profile", creds.Profile)
				}
				f.Row("token", maskToken(creds.Token))
				if creds.UserID > 0 {
					f.Row("user", fmt.Sprintf("id%d", creds.UserID))
				}
				if creds.ExpiresAt > 0 {
					f.Row("expires", time.Unix(creds.ExpiresAt, 0).Local().Format(time.RFC3339))
				} else if creds.Source == config.SourceProfile {
					f.Row("expires", "never")
				}
				if len(scope) > 0 {
					f.Row("scope", strings.Join(scope, ","))
				}
				return f.EndTable()
			})
		}),
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token of a profile",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			profile, err := config.ResolveProfileName(flags.Profile)
			if err != nil {
				return err
			}
			if err := config.DeleteProfile(profile); err != nil {
				return err
			}
			return render(cmd, map[string]any{"profile": profile, "removed": true}, func(*outfmt.Formatter) error {
				printText(cmd, "Removed profile %q\n", profile)
				return nil
			})
		}),
	}
}

func newAuthURLCmd() *cobra.Command {
	var (
		appID    int64
		scope    []string
		display  string
		redirect string
		revoke   bool
	)

	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the authorize dialog URL",
		Long: strings.TrimSpace(`
Print the URL of the implicit-flow authorize dialog. Open it, allow access,
then pass the address you land on to 'vk auth login --redirect-url'.
`),
		Example: `  vk auth url --app-id 12345 --scope friends,offline`,
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if redirect != "" {
				if err := validation.ValidateRedirectURL(redirect); err != nil {
					return err
				}
			}
			if len(scope) == 0 {
				scope = defaultLoginScope
			}
			u, err := auth.AuthorizeURL(auth.AuthorizeOptions{
				AppID:       appID,
				Scope:       splitCommaList(scope...),
				RedirectURI: redirect,
				Display:     display,
				Revoke:      revoke,
				APIVersion:  api.DefaultConfig().APIVersion,
			})
			if err != nil {
				return err
			}
			return render(cmd, map[string]any{"url": u}, func(*outfmt.Formatter) error {
				printText(cmd, "%s\n", u)
				return nil
			})
		}),
	}

	cmd.Flags().Int64Var(&appID, "app-id", 0, "Application id")
	cmd.Flags().StringSliceVar(&scope, "scope", nil, "Permissions to request")
	cmd.Flags().StringVar(&display, "display", "", "Dialog layout: "+strings.Join(auth.Displays, "|"))
	cmd.Flags().StringVar(&redirect, "redirect-uri", "", "Redirect target (default "+auth.BlankRedirect+")")
	cmd.Flags().BoolVar(&revoke, "revoke", false, "Ask for permissions again even if granted")
	_ = cmd.MarkFlagRequired("app-id")
	_ = cmd.RegisterFlagCompletionFunc("scope", cobra.FixedCompletions(auth.Scopes, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("display", cobra.FixedCompletions(auth.Displays, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func newAuthProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"ls"},
		Short:   "List stored profiles",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			profiles, err := config.ListProfiles()
			if err != nil {
				return err
			}
			current, err := config.CurrentProfile()
			if err != nil {
				return err
			}
			type entry struct {
				Name    string `json:"name"`
				Current bool   `json:"current"`
			}
			entries := make([]entry, 0, len(profiles))
			for _, p := range profiles {
				entries = append(entries, entry{Name: p, Current: p == current})
			}
			return render(cmd, entries, func(f *outfmt.Formatter) error {
				if len(entries) == 0 {
					f.Empty("No profiles. Run 'vk auth login' first.")
					return nil
				}
				for _, e := range entries {
					marker := " "
					if e.Current {
						marker = "*"
					}
					printText(cmd, "%s %s\n", marker, e.Name)
				}
				return nil
			})
		}),
	}
}

func newAuthUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <profile>",
		Short: "Make a stored profile the current one",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateProfileName(args[0]); err != nil {
				return err
			}
			if err := config.SetCurrentProfile(args[0]); err != nil {
				return err
			}
			return render(cmd, map[string]any{"current": args[0]}, func(*outfmt.Formatter) error {
				printText(cmd, "Now using profile %q\n", args[0])
				return nil
			})
		}),
	}
}
