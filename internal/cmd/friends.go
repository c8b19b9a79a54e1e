package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vkcli/vk-cli/internal/api"
	"github.com/vkcli/vk-cli/internal/outfmt"
)

func newFriendsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "friends",
		Aliases: []string{"friend", "f"},
		Short:   "List friends and friendship state",
	}

	cmd.AddCommand(newFriendsListCmd())
	cmd.AddCommand(newFriendsIDsCmd())
	cmd.AddCommand(newFriendsOnlineCmd())
	cmd.AddCommand(newFriendsMutualCmd())
	cmd.AddCommand(newFriendsAppUsersCmd())
	cmd.AddCommand(newFriendsAreFriendsCmd())

	return cmd
}

func newFriendsListCmd() *cobra.Command {
	var (
		fields   []string
		nameCase string
		order    string
		count    int
		offset   int
		listID   int64
	)

	cmd := &cobra.Command{
		Use:     "list [user]",
		Aliases: []string{"ls"},
		Short:   "List friends as profiles",
		Example: strings.TrimSpace(`
  vk friends list
  vk friends list durov --order name --fields online,city
`),
		Args: cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			getOpts, err := usersGetOptions(fields, nameCase)
			if err != nil {
				return err
			}
			if order != "" {
				if _, err := parseNames("order", []string{order}, api.FriendsOrders); err != nil {
					return err
				}
			}
			opts := api.FriendsGetOptions{
				Fields:   getOpts.Fields,
				NameCase: getOpts.NameCase,
				Count:    count,
				Offset:   offset,
				ListID:   listID,
				Order:    api.FriendsOrder(order),
			}

			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				uid, err := userIDFromArg(ctx, c, firstArg(args))
				if err != nil {
					return err
				}
				friends, err := c.Friends().Get(ctx, uid, opts)
				if err != nil {
					return err
				}
				return writeUsers(cmd, friends, friends)
			})
		}),
	}

	addUserFieldFlags(cmd, &fields, &nameCase)
	cmd.Flags().StringVar(&order, "order", "", "Sort order: "+strings.Join(api.FriendsOrders, "|"))
	cmd.Flags().IntVar(&count, "count", 0, "Number of friends to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many friends")
	cmd.Flags().Int64Var(&listID, "list-id", 0, "Only friends from this friend list")
	_ = cmd.RegisterFlagCompletionFunc("order", cobra.FixedCompletions(api.FriendsOrders, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// writeIDs renders an id list, one id per line in text mode.
func writeIDs(cmd *cobra.Command, ids []int64) error {
	return render(cmd, ids, func(f *outfmt.Formatter) error {
		if len(ids) == 0 {
			f.Empty("No results.")
			return nil
		}
		for _, id := range ids {
			printText(cmd, "%d\n", id)
		}
		return nil
	})
}

func newFriendsIDsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ids [user]",
		Short: "List friend ids",
		Args:  cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				uid, err := userIDFromArg(ctx, c, firstArg(args))
				if err != nil {
					return err
				}
				ids, err := c.Friends().GetIDs(ctx, uid)
				if err != nil {
					return err
				}
				return writeIDs(cmd, ids)
			})
		}),
	}
}

func newFriendsOnlineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "online [user]",
		Short: "List ids of friends who are online",
		Args:  cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				uid, err := userIDFromArg(ctx, c, firstArg(args))
				if err != nil {
					return err
				}
				ids, err := c.Friends().GetOnline(ctx, uid)
				if err != nil {
					return err
				}
				return writeIDs(cmd, ids)
			})
		}),
	}
}

func newFriendsMutualCmd() *cobra.Command {
	var (
		friend string
		source string
	)

	cmd := &cobra.Command{
		Use:   "mutual [user]",
		Short: "List friends shared with another user",
		Example: strings.TrimSpace(`
  vk friends mutual 2
  vk friends mutual --friend "Lidia"
  vk friends mutual 2 --source 1
`),
		Args: cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && friend == "" {
				return fmt.Errorf("a target user or --friend is required")
			}
			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				target, err := userOrFriend(ctx, c, firstArg(args), friend)
				if err != nil {
					return err
				}
				src, err := userIDFromArg(ctx, c, source)
				if err != nil {
					return err
				}
				ids, err := c.Friends().GetMutual(ctx, target, src)
				if err != nil {
					return err
				}
				return writeIDs(cmd, ids)
			})
		}),
	}

	cmd.Flags().StringVar(&friend, "friend", "", "Pick the target among your friends by name")
	cmd.Flags().StringVar(&source, "source", "", "Compare from this user instead of the current one")

	return cmd
}

func newFriendsAppUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "app-users",
		Short: "List friends who installed the application",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				ids, err := c.Friends().GetAppUsers(ctx)
				if err != nil {
					return err
				}
				return writeIDs(cmd, ids)
			})
		}),
	}
}

var friendStatusNames = map[int]string{
	api.FriendStatusNone:     "none",
	api.FriendStatusOutgoing: "request sent",
	api.FriendStatusIncoming: "request received",
	api.FriendStatusMutual:   "friends",
}

func newFriendsAreFriendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "are-friends <user>...",
		Short:   "Show friendship status with each user",
		Example: `  vk friends are-friends 2 3 durov`,
		Args:    cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			refs, err := userRefs(args)
			if err != nil {
				return err
			}
			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				uids := make([]int64, 0, len(refs))
				for _, r := range refs {
					uid, err := userIDFromArg(ctx, c, r)
					if err != nil {
						return err
					}
					uids = append(uids, uid)
				}
				statuses, err := c.Friends().AreFriends(ctx, uids)
				if err != nil {
					return err
				}
				return render(cmd, statuses, func(f *outfmt.Formatter) error {
					f.StartTable([]string{"USER", "STATUS"})
					for _, s := range statuses {
						status := "-"
						if v, ok := s.FriendStatus().Get(); ok {
							status = friendStatusNames[v]
							if status == "" {
								status = fmt.Sprint(v)
							}
						}
						f.Row(show(s.UserID()), status)
					}
					return f.EndTable()
				})
			})
		}),
	}
}
