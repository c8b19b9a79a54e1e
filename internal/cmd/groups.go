package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vkcli/vk-cli/internal/api"
	"github.com/vkcli/vk-cli/internal/outfmt"
	"github.com/vkcli/vk-cli/internal/validation"
)

func newGroupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "groups",
		Aliases: []string{"group", "g"},
		Short:   "Look up communities and memberships",
	}

	cmd.AddCommand(newGroupsListCmd())
	cmd.AddCommand(newGroupsGetCmd())
	cmd.AddCommand(newGroupsIsMemberCmd())
	cmd.AddCommand(newGroupsSearchCmd())

	return cmd
}

func writeGroups(cmd *cobra.Command, data any, groups []api.Group) error {
	return render(cmd, data, func(f *outfmt.Formatter) error {
		if len(groups) == 0 {
			f.Empty("No communities found.")
			return nil
		}
		f.StartTable([]string{"ID", "NAME", "SCREEN_NAME", "MEMBERS", "CLOSED"})
		for _, g := range groups {
			closed := "-"
			if v, ok := g.IsClosed().Get(); ok {
				closed = yesNo(v)
			}
			f.Row(show(g.ID()), show(g.Name()), show(g.ScreenName()), show(g.MembersCount()), closed)
		}
		return f.EndTable()
	})
}

func newGroupsListCmd() *cobra.Command {
	var (
		extended bool
		filters  []string
		fields   []string
		offset   int
		count    int
	)

	cmd := &cobra.Command{
		Use:     "list [user]",
		Aliases: []string{"ls"},
		Short:   "List communities a user belongs to",
		Example: strings.TrimSpace(`
  vk groups list
  vk groups list durov --extended --filter publics
`),
		Args: cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			filterNames, err := parseNames("filter", filters, api.GroupFilters)
			if err != nil {
				return err
			}
			fieldNames, err := parseNames("field", fields, api.GroupFields)
			if err != nil {
				return err
			}
			opts := api.GroupsGetOptions{Fields: fieldNames, Offset: offset, Count: count}
			for _, name := range filterNames {
				opts.Filters = append(opts.Filters, api.GroupFilter(name))
			}

			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				uid, err := userIDFromArg(ctx, c, firstArg(args))
				if err != nil {
					return err
				}
				if extended {
					list, err := c.Groups().GetExtended(ctx, uid, opts)
					if err != nil {
						return err
					}
					return writeGroups(cmd, list, list.Groups)
				}
				ids, err := c.Groups().Get(ctx, uid, opts)
				if err != nil {
					return err
				}
				return render(cmd, ids, func(*outfmt.Formatter) error {
					return writeIDs(cmd, ids.IDs)
				})
			})
		}),
	}

	cmd.Flags().BoolVar(&extended, "extended", false, "Return full community objects instead of ids")
	cmd.Flags().StringSliceVar(&filters, "filter", nil, "Only these kinds: "+strings.Join(api.GroupFilters, ","))
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "Community fields for --extended (comma separated)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many communities")
	cmd.Flags().IntVar(&count, "count", 0, "Number of communities to return (max 1000)")
	flagAlias(cmd.Flags(), "extended", "ext")
	_ = cmd.RegisterFlagCompletionFunc("filter", cobra.FixedCompletions(api.GroupFilters, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("fields", cobra.FixedCompletions(api.GroupFields, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func newGroupsGetCmd() *cobra.Command {
	var (
		fields      []string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "get <id|screen_name|url>...",
		Short: "Get communities by id, screen name or vk.com link",
		Long: strings.TrimSpace(`
Get communities. Arguments may be ids, club/public/event references, screen
names or vk.com links. Lists are split into batches of 500.
`),
		Example: strings.TrimSpace(`
  vk groups get apiclub
  vk groups get club1 https://vk.com/public2 --fields members_count
`),
		Args: cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ids, err := groupRefs(args)
			if err != nil {
				return err
			}
			fieldNames, err := parseNames("field", fields, api.GroupFields)
			if err != nil {
				return err
			}

			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				groups, err := runBatches(ctx, ids, api.MaxGroupsPerGetByID, concurrency, func(ctx context.Context, batch []string) ([]api.Group, error) {
					return c.Groups().GetByID(ctx, batch, fieldNames)
				})
				if err != nil {
					return err
				}
				return writeGroups(cmd, groups, groups)
			})
		}),
	}

	cmd.Flags().StringSliceVar(&fields, "fields", nil, "Community fields to request (comma separated)")
	cmd.Flags().IntVar(&concurrency, "concurrency", defaultConcurrency, "Batches fetched at the same time")
	flagAlias(cmd.Flags(), "fields", "fi")

	return cmd
}

func newGroupsIsMemberCmd() *cobra.Command {
	var extended bool

	cmd := &cobra.Command{
		Use:   "is-member <group> [user]",
		Short: "Check whether a user belongs to a community",
		Example: strings.TrimSpace(`
  vk groups is-member apiclub
  vk groups is-member club1 durov --extended
`),
		Args: cobra.RangeArgs(1, 2),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			gid, err := groupIDFromArg(args[0])
			if err != nil {
				return err
			}
			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				var userArg string
				if len(args) > 1 {
					userArg = args[1]
				}
				uid, err := userIDFromArg(ctx, c, userArg)
				if err != nil {
					return err
				}
				if extended {
					m, err := c.Groups().IsMemberExtended(ctx, gid, uid)
					if err != nil {
						return err
					}
					return render(cmd, m, func(f *outfmt.Formatter) error {
						f.StartTable([]string{"MEMBER", "REQUEST", "INVITATION"})
						f.Row(showFlag(m.Member()), showFlag(m.Request()), showFlag(m.Invitation()))
						return f.EndTable()
					})
				}
				member, err := c.Groups().IsMember(ctx, gid, uid)
				if err != nil {
					return err
				}
				return render(cmd, map[string]any{"group": gid, "user_id": uid, "member": member}, func(*outfmt.Formatter) error {
					printText(cmd, "%s\n", yesNo(member))
					return nil
				})
			})
		}),
	}

	cmd.Flags().BoolVar(&extended, "extended", false, "Also report pending requests and invitations")
	flagAlias(cmd.Flags(), "extended", "ext")

	return cmd
}

func showFlag(o api.Opt[bool]) string {
	v, ok := o.Get()
	if !ok {
		return "-"
	}
	return yesNo(v)
}

func newGroupsSearchCmd() *cobra.Command {
	var (
		offset int
		count  int
	)

	cmd := &cobra.Command{
		Use:     "search <query>",
		Short:   "Search communities by name",
		Example: `  vk groups search "vk api" --count 10`,
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateQuery(args[0]); err != nil {
				return err
			}
			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				list, err := c.Groups().Search(ctx, args[0], offset, count)
				if err != nil {
					return err
				}
				if !outfmt.IsStructured(cmd.Context()) {
					printText(cmd, "%d communities found\n", list.Count)
				}
				return writeGroups(cmd, list, list.Groups)
			})
		}),
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many results")
	cmd.Flags().IntVar(&count, "count", 0, "Number of results")

	return cmd
}
