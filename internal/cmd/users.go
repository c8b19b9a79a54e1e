package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vkcli/vk-cli/internal/api"
	"github.com/vkcli/vk-cli/internal/auth"
	"github.com/vkcli/vk-cli/internal/outfmt"
	"github.com/vkcli/vk-cli/internal/validation"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user", "u"},
		Short:   "Look up user profiles",
	}

	cmd.AddCommand(newUsersGetCmd())
	cmd.AddCommand(newUsersSearchCmd())
	cmd.AddCommand(newUsersIsAppUserCmd())
	cmd.AddCommand(newUsersSettingsCmd())

	return cmd
}

func addUserFieldFlags(cmd *cobra.Command, fields *[]string, nameCase *string) {
	cmd.Flags().StringSliceVar(fields, "fields", nil, "Profile fields to request (comma separated)")
	cmd.Flags().StringVar(nameCase, "name-case", "", "Grammatical case of names: "+strings.Join(api.NameCases, "|"))
	flagAlias(cmd.Flags(), "fields", "fi")
	_ = cmd.RegisterFlagCompletionFunc("fields", cobra.FixedCompletions(api.UserFields, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("name-case", cobra.FixedCompletions(api.NameCases, cobra.ShellCompDirectiveNoFileComp))
}

func usersGetOptions(fields []string, nameCase string) (api.UsersGetOptions, error) {
	names, err := parseNames("field", fields, api.UserFields)
	if err != nil {
		return api.UsersGetOptions{}, err
	}
	nc := api.NameCase(nameCase)
	if !nc.Valid() {
		return api.UsersGetOptions{}, api.NewAllowedValuesError("name case", nameCase, api.NameCases)
	}
	return api.UsersGetOptions{Fields: names, NameCase: nc}, nil
}

func newUsersGetCmd() *cobra.Command {
	var (
		fields      []string
		nameCase    string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "get <id|screen_name|url>...",
		Short: "Get profiles by id, screen name or vk.com link",
		Long: strings.TrimSpace(`
Get user profiles. Arguments may be numeric ids, screen names or vk.com links,
separated by spaces or commas. Large lists are split into batches of 1000 and
fetched concurrently; output keeps the argument order.
`),
		Example: strings.TrimSpace(`
  vk users get 1
  vk users get durov https://vk.com/id2 --fields sex,bdate,city
  vk users get 1,2,3 -o json --jq '.[].first_name'
`),
		Args: cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ids, err := userRefs(args)
			if err != nil {
				return err
			}
			opts, err := usersGetOptions(fields, nameCase)
			if err != nil {
				return err
			}

			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				users, err := runBatches(ctx, ids, api.MaxUsersPerGet, concurrency, func(ctx context.Context, batch []string) ([]api.User, error) {
					return c.Users().GetByScreenName(ctx, batch, opts)
				})
				if err != nil {
					return err
				}
				return writeUsers(cmd, users, users)
			})
		}),
	}

	addUserFieldFlags(cmd, &fields, &nameCase)
	cmd.Flags().IntVar(&concurrency, "concurrency", defaultConcurrency, "Batches fetched at the same time")

	return cmd
}

// writeUsers renders data, or a user table in text mode.
func writeUsers(cmd *cobra.Command, data any, users []api.User) error {
	return render(cmd, data, func(f *outfmt.Formatter) error {
		if len(users) == 0 {
			f.Empty("No users found.")
			return nil
		}
		f.StartTable([]string{"ID", "NAME", "SCREEN_NAME", "ONLINE"})
		for _, u := range users {
			online := "-"
			if v, ok := u.Online().Get(); ok {
				online = yesNo(v)
			}
			f.Row(show(u.ID()), u.FullName(), show(u.ScreenName()), online)
		}
		return f.EndTable()
	})
}

func newUsersSearchCmd() *cobra.Command {
	var (
		fields []string
		offset int
		count  int
	)

	cmd := &cobra.Command{
		Use:     "search <query>",
		Short:   "Search users by name",
		Example: `  vk users search "Pavel Durov" --count 5`,
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateQuery(args[0]); err != nil {
				return err
			}
			names, err := parseNames("field", fields, api.UserFields)
			if err != nil {
				return err
			}
			opts := api.UsersSearchOptions{Fields: names, Offset: offset, Count: count}

			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				list, err := c.Users().Search(ctx, args[0], opts)
				if err != nil {
					return err
				}
				if !outfmt.IsStructured(cmd.Context()) {
					printText(cmd, "%d users found\n", list.Count)
				}
				return writeUsers(cmd, list, list.Users)
			})
		}),
	}

	cmd.Flags().StringSliceVar(&fields, "fields", nil, "Profile fields to request (comma separated)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many results")
	cmd.Flags().IntVar(&count, "count", 0, "Number of results (max 1000)")
	flagAlias(cmd.Flags(), "fields", "fi")

	return cmd
}

func newUsersIsAppUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "is-app-user [user]",
		Short: "Check whether a user installed the application",
		Args:  cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				uid, err := userIDFromArg(ctx, c, firstArg(args))
				if err != nil {
					return err
				}
				installed, err := c.Users().IsAppUser(ctx, uid)
				if err != nil {
					return err
				}
				return render(cmd, map[string]any{"user_id": uid, "app_user": installed}, func(*outfmt.Formatter) error {
					printText(cmd, "%s\n", yesNo(installed))
					return nil
				})
			})
		}),
	}
}

func newUsersSettingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settings [user]",
		Short: "Show the permissions granted to the application",
		Args:  cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				uid, err := userIDFromArg(ctx, c, firstArg(args))
				if err != nil {
					return err
				}
				mask, err := c.Users().GetSettings(ctx, uid)
				if err != nil {
					return err
				}
				scopes := auth.ScopesFromMask(mask)
				return render(cmd, map[string]any{"user_id": uid, "mask": mask, "scopes": scopes}, func(*outfmt.Formatter) error {
					printText(cmd, "Mask: %d\n", mask)
					if len(scopes) > 0 {
						printText(cmd, "Scopes: %s\n", strings.Join(scopes, ", "))
					}
					return nil
				})
			})
		}),
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
