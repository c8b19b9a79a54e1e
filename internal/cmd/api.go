package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vkcli/vk-cli/internal/api"
	"github.com/vkcli/vk-cli/internal/iocontext"
	"github.com/vkcli/vk-cli/internal/outfmt"
	"github.com/vkcli/vk-cli/internal/validation"
)

func newAPICmd() *cobra.Command {
	var (
		params []string
		raw    bool
	)

	cmd := &cobra.Command{
		Use:   "api <method> [key=value...]",
		Short: "Call any API method",
		Long: strings.TrimSpace(`
Call an API method directly. Parameters are given as key=value pairs, either
as arguments or with -p. The "response" member of the reply is printed as
JSON; --raw prints the whole reply body.
`),
		Example: strings.TrimSpace(`
  vk api users.get uids=1 fields=screen_name
  vk api wall.get -p owner_id=-1 -p count=5 --jq '.[1:]'
  vk api status.get --raw
`),
		Args: cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			method := args[0]
			if err := validation.ValidateMethodName(method); err != nil {
				return fmt.Errorf("invalid argument: %w", err)
			}
			values, err := parseKeyValues(append(args[1:], params...))
			if err != nil {
				return err
			}

			return runAPI(cmd, func(ctx context.Context, c *api.Client) error {
				env, err := c.Call(ctx, method, values)
				if err != nil {
					return err
				}
				var data any = env.ResponseJSON()
				if raw {
					data = json.RawMessage(env.Raw())
				}
				f := newFormatter(cmd)
				if outfmt.IsStructured(cmd.Context()) || outfmt.GetTemplate(cmd.Context()) != "" {
					return f.Output(data)
				}
				return outfmt.WriteJSONMaybeCompact(iocontext.GetIO(cmd.Context()).Out, data, outfmt.IsCompact(cmd.Context()))
			})
		}),
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the full reply instead of the response member")

	return cmd
}

// parseKeyValues turns key=value pairs into a parameter map. A repeated key
// keeps its last value; empty values are allowed and later dropped by the
// request builder.
func parseKeyValues(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q: expected key=value", pair)
		}
		if key == "access_token" {
			return nil, fmt.Errorf("invalid argument %q: pass the access token with --token or a stored profile", key)
		}
		out[key] = value
	}
	return out, nil
}
