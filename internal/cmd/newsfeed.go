package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vkcli/vk-cli/internal/api"
	"github.com/vkcli/vk-cli/internal/cli"
	"github.com/vkcli/vk-cli/internal/outfmt"
	"github.com/vkcli/vk-cli/internal/urlparse"
)

func newNewsFeedCmd() *cobra.Command {
	var (
		filters []string
		sources []string
		since   string
		until   string
		offset  int
		count   int
		from    string
	)

	cmd := &cobra.Command{
		Use:     "newsfeed",
		Aliases: []string{"news", "feed"},
		Short:   "Read the news feed",
		Long: strings.TrimSpace(`
Read a page of the news feed. --since and --until accept "2h ago", "yesterday",
"last mon", dates (2006-01-02), RFC3339 or unix seconds. The next page is
fetched by passing the printed --from value back.
`),
		Example: strings.TrimSpace(`
  vk newsfeed --filters post,photo --since "1d ago"
  vk newsfeed --sources club1,durov --count 20
  vk newsfeed --from 1/5_-1_2
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			names, err := parseNames("filter", filters, api.NewsTypes)
			if err != nil {
				return err
			}
			now := time.Now()
			start, err := cli.ParseUnixTime(since, now)
			if err != nil {
				return fmt.Errorf("invalid --since: %w", err)
			}
			end, err := cli.ParseUnixTime(until, now)
			if err != nil {
				return fmt.Errorf("invalid --until: %w", err)
			}
			var refs []urlparse.Ref
			if list := splitCommaList(sources...); len(list) > 0 {
				refs, err = urlparse.ParseList(list)
				if err != nil {
					return err
				}
			}

			opts := api.NewsFeedOptions{StartTime: start, EndTime: end, Offset: offset, Count: count, From: from}
			for _, n := range names {
				opts.Filters = append(opts.Filters, api.NewsType(n))
			}

			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				opts.SourceIDs, err = sourceIDs(ctx, c, refs)
				if err != nil {
					return err
				}
				feed, err := c.NewsFeed().Get(ctx, opts)
				if err != nil {
					return err
				}
				return writeNewsFeed(cmd, feed)
			})
		}),
	}

	cmd.Flags().StringSliceVar(&filters, "filters", nil, "Item types: "+strings.Join(api.NewsTypes, ","))
	cmd.Flags().StringSliceVar(&sources, "sources", nil, "Only items from these users or communities")
	cmd.Flags().StringVar(&since, "since", "", "Only items after this time")
	cmd.Flags().StringVar(&until, "until", "", "Only items before this time")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many items")
	cmd.Flags().IntVar(&count, "count", 0, "Number of items")
	cmd.Flags().StringVar(&from, "from", "", "Continue from a previous page")
	flagAlias(cmd.Flags(), "filters", "filter")
	_ = cmd.RegisterFlagCompletionFunc("filters", cobra.FixedCompletions(api.NewsTypes, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// sourceIDs renders feed sources the way newsfeed.get expects them:
// users as positive ids, communities negated. Screen names are looked up
// as users.
func sourceIDs(ctx context.Context, c *api.Client, refs []urlparse.Ref) ([]string, error) {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		switch r.Kind {
		case urlparse.KindGroup:
			out = append(out, strconv.FormatInt(-r.ID, 10))
		case urlparse.KindScreenName:
			uid, err := userIDFromArg(ctx, c, r.ScreenName)
			if err != nil {
				return nil, err
			}
			out = append(out, strconv.FormatInt(uid, 10))
		default:
			out = append(out, strconv.FormatInt(r.ID, 10))
		}
	}
	return out, nil
}

// sourceNames maps feed source ids to display names using the profiles and
// communities bundled with the page.
func sourceNames(feed *api.NewsFeed) map[int64]string {
	names := make(map[int64]string, len(feed.Profiles)+len(feed.Groups))
	for _, u := range feed.Profiles {
		if id, ok := u.ID().Get(); ok {
			names[id] = u.FullName()
		}
	}
	for _, g := range feed.Groups {
		if id, ok := g.ID().Get(); ok {
			names[-id] = g.Name().Or("")
		}
	}
	return names
}

func writeNewsFeed(cmd *cobra.Command, feed *api.NewsFeed) error {
	return render(cmd, feed, func(f *outfmt.Formatter) error {
		if len(feed.Items) == 0 {
			f.Empty("No news.")
		} else {
			names := sourceNames(feed)
			f.StartTable([]string{"TYPE", "SOURCE", "DATE", "LIKES", "TEXT"})
			for _, item := range feed.Items {
				source := show(item.SourceID())
				if id, ok := item.SourceID().Get(); ok && names[id] != "" {
					source = names[id]
				}
				likes := "-"
				if l, ok := item.Likes().Get(); ok {
					likes = show(l.Count)
				}
				f.Row(show(item.Type()), source, formatUnix(item.Date()), likes, item.Text().Or(""))
			}
			if err := f.EndTable(); err != nil {
				return err
			}
		}
		if next, ok := feed.NewFrom.Get(); ok && next != "" {
			printText(cmd, "\nNext page: --from %s\n", next)
		} else if next, ok := feed.NewOffset.Get(); ok {
			printText(cmd, "\nNext page: --offset %d\n", next)
		}
		return nil
	})
}
