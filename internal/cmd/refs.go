package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/vkcli/vk-cli/internal/api"
	"github.com/vkcli/vk-cli/internal/cache"
	"github.com/vkcli/vk-cli/internal/resolve"
	"github.com/vkcli/vk-cli/internal/urlparse"
)

// userRefs turns arguments into the uids list users.get accepts: ids and
// screen names.
func userRefs(args []string) ([]string, error) {
	refs, err := urlparse.ParseList(args)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.Kind == urlparse.KindGroup {
			return nil, fmt.Errorf("invalid argument %q: a community, not a user", "club"+r.String())
		}
		out = append(out, r.String())
	}
	return out, nil
}

// groupRefs turns arguments into the gids list groups.getById accepts.
func groupRefs(args []string) ([]string, error) {
	refs, err := urlparse.ParseList(args)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.Kind == urlparse.KindUser {
			return nil, fmt.Errorf("invalid argument %q: a user, not a community", "id"+r.String())
		}
		out = append(out, r.String())
	}
	return out, nil
}

// screenNames returns the on-disk screen name cache for the client's endpoint.
func screenNames(c *api.Client) *cache.ScreenNames {
	dir, err := cache.DefaultDir()
	if err != nil {
		return nil
	}
	return cache.NewScreenNames(dir, c.BaseURL())
}

// userIDFromArg resolves a user reference to a numeric id. Screen names cost
// one users.get call unless cached. An empty argument means the current user (0).
func userIDFromArg(ctx context.Context, c *api.Client, arg string) (int64, error) {
	if strings.TrimSpace(arg) == "" {
		return 0, nil
	}
	ref, err := urlparse.Parse(arg)
	if err != nil {
		return 0, err
	}
	switch ref.Kind {
	case urlparse.KindGroup:
		return 0, fmt.Errorf("invalid argument %q: a community, not a user", arg)
	case urlparse.KindScreenName:
		known := screenNames(c)
		if id, ok := known.Lookup(ref.ScreenName); ok {
			return id, nil
		}
		users, err := c.Users().GetByScreenName(ctx, []string{ref.ScreenName}, api.UsersGetOptions{Fields: []string{"screen_name"}})
		if err != nil {
			return 0, err
		}
		if len(users) == 0 {
			return 0, fmt.Errorf("user %q not found", ref.ScreenName)
		}
		id, ok := users[0].ID().Get()
		if !ok {
			return 0, fmt.Errorf("user %q has no id in the response", ref.ScreenName)
		}
		known.Remember(ref.ScreenName, id)
		return id, nil
	}
	return ref.ID, nil
}

// groupIDFromArg resolves a community reference to the gid string
// groups.isMember accepts (a number or a screen name).
func groupIDFromArg(arg string) (string, error) {
	ref, err := urlparse.Parse(arg)
	if err != nil {
		return "", err
	}
	if ref.Kind == urlparse.KindUser {
		return "", fmt.Errorf("invalid argument %q: a user, not a community", arg)
	}
	return ref.String(), nil
}

// friendIDByName finds a friend of the current user by display name.
func friendIDByName(ctx context.Context, c *api.Client, name string) (int64, error) {
	friends, err := c.Friends().Get(ctx, 0, api.FriendsGetOptions{Fields: []string{"first_name", "last_name"}})
	if err != nil {
		return 0, err
	}
	items := make([]resolve.Named, 0, len(friends))
	for _, f := range friends {
		id, ok := f.ID().Get()
		if !ok {
			continue
		}
		items = append(items, resolve.Named{ID: id, Name: f.FullName()})
	}
	id, err := resolve.FuzzyMatch(name, items)
	if err != nil {
		return 0, fmt.Errorf("friend %q: %w", name, err)
	}
	return id, nil
}

// userOrFriend resolves the positional user argument, or --friend when set.
func userOrFriend(ctx context.Context, c *api.Client, arg, friend string) (int64, error) {
	if friend != "" {
		if arg != "" {
			return 0, fmt.Errorf("a user argument and --friend cannot be used together")
		}
		return friendIDByName(ctx, c, friend)
	}
	return userIDFromArg(ctx, c, arg)
}
