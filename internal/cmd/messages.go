package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vkcli/vk-cli/internal/api"
	"github.com/vkcli/vk-cli/internal/outfmt"
)

const messageDateLayout = "2006-01-02 15:04"

func newMessagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "messages",
		Aliases: []string{"message", "msg", "m"},
		Short:   "Read private messages and dialogs",
	}

	cmd.AddCommand(newMessagesListCmd())
	cmd.AddCommand(newMessagesHistoryCmd())
	cmd.AddCommand(newMessagesDialogsCmd())

	return cmd
}

func formatUnix(o api.Opt[int64]) string {
	v, ok := o.Get()
	if !ok {
		return "-"
	}
	return time.Unix(v, 0).Local().Format(messageDateLayout)
}

// messageAuthor prefers from_id, which history entries carry, over uid.
func messageAuthor(m api.Message) string {
	if _, ok := m.FromID().Get(); ok {
		return show(m.FromID())
	}
	return show(m.UserID())
}

func messageSummary(m api.Message) string {
	body := m.Body().Or("")
	if title := m.Title().Or(""); title != "" && title != " ... " {
		body = title + ": " + body
	}
	if atts, ok := m.Attachments().Get(); ok && len(atts) > 0 {
		body = strings.TrimSpace(fmt.Sprintf("%s [%d attachment(s)]", body, len(atts)))
	}
	if fwd, ok := m.Forwarded().Get(); ok && len(fwd) > 0 {
		body = strings.TrimSpace(fmt.Sprintf("%s [%d forwarded]", body, len(fwd)))
	}
	return body
}

func writeMessages(cmd *cobra.Command, messages []api.Message) error {
	return render(cmd, messages, func(f *outfmt.Formatter) error {
		if len(messages) == 0 {
			f.Empty("No messages found.")
			return nil
		}
		f.StartTable([]string{"ID", "FROM", "DATE", "READ", "BODY"})
		for _, m := range messages {
			f.Row(show(m.ID()), messageAuthor(m), formatUnix(m.Date()), showFlag(m.ReadState()), messageSummary(m))
		}
		return f.EndTable()
	})
}

func newMessagesListCmd() *cobra.Command {
	var (
		out        bool
		offset     int
		count      int
		timeOffset time.Duration
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List received or sent messages",
		Example: strings.TrimSpace(`
  vk messages list --count 20
  vk messages list --sent --time-offset 1h
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if timeOffset < 0 {
				return fmt.Errorf("--time-offset must be zero or positive")
			}
			opts := api.MessagesGetOptions{
				Out:        out,
				Offset:     offset,
				Count:      count,
				TimeOffset: int64(timeOffset / time.Second),
			}
			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				messages, err := c.Messages().Get(ctx, opts)
				if err != nil {
					return err
				}
				return writeMessages(cmd, messages)
			})
		}),
	}

	cmd.Flags().BoolVar(&out, "sent", false, "List sent messages instead of received")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many messages")
	cmd.Flags().IntVar(&count, "count", 0, fmt.Sprintf("Number of messages (max %d)", api.MaxMessagesPerGet))
	cmd.Flags().DurationVar(&timeOffset, "time-offset", 0, "Only messages newer than this (e.g. 30m, 24h)")

	return cmd
}

func newMessagesHistoryCmd() *cobra.Command {
	var (
		friend   string
		offset   int
		count    int
		startMID int64
		rev      bool
	)

	cmd := &cobra.Command{
		Use:   "history [user]",
		Short: "Show the conversation with a user",
		Example: strings.TrimSpace(`
  vk messages history durov --count 50
  vk messages history --friend "Lidia" --rev
`),
		Args: cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && friend == "" {
				return fmt.Errorf("a user argument or --friend is required")
			}
			opts := api.MessagesHistoryOptions{Offset: offset, Count: count, StartMessageID: startMID}
			if cmd.Flags().Changed("rev") {
				opts.Reverse = &rev
			}
			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				peer, err := userOrFriend(ctx, c, firstArg(args), friend)
				if err != nil {
					return err
				}
				messages, err := c.Messages().GetHistory(ctx, peer, opts)
				if err != nil {
					return err
				}
				return writeMessages(cmd, messages)
			})
		}),
	}

	cmd.Flags().StringVar(&friend, "friend", "", "Pick the conversation partner among your friends by name")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many messages")
	cmd.Flags().IntVar(&count, "count", 0, fmt.Sprintf("Number of messages (max %d)", api.MaxMessagesPerHistory))
	cmd.Flags().Int64Var(&startMID, "start-mid", 0, "Start from this message id")
	cmd.Flags().BoolVar(&rev, "rev", false, "Oldest messages first")

	return cmd
}

func newMessagesDialogsCmd() *cobra.Command {
	var (
		user          string
		chatID        int64
		offset        int
		count         int
		previewLength int
	)

	cmd := &cobra.Command{
		Use:     "dialogs",
		Aliases: []string{"dlg"},
		Short:   "List conversations with their last message",
		Example: strings.TrimSpace(`
  vk messages dialogs --count 10 --preview-length 40
  vk messages dialogs --user durov
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				uid, err := userIDFromArg(ctx, c, user)
				if err != nil {
					return err
				}
				messages, err := c.Messages().GetDialogs(ctx, api.MessagesDialogsOptions{
					UserID:        uid,
					ChatID:        chatID,
					Offset:        offset,
					Count:         count,
					PreviewLength: previewLength,
				})
				if err != nil {
					return err
				}
				return writeMessages(cmd, messages)
			})
		}),
	}

	cmd.Flags().StringVar(&user, "user", "", "Only the dialog with this user")
	cmd.Flags().Int64Var(&chatID, "chat-id", 0, "Only this group chat")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many dialogs")
	cmd.Flags().IntVar(&count, "count", 0, "Number of dialogs")
	cmd.Flags().IntVar(&previewLength, "preview-length", 0, "Truncate message bodies to this many characters")

	return cmd
}
