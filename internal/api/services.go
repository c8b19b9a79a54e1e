package api

// Service accessors group Client methods by API section.
// Each service embeds *Client so it satisfies Requester.

type UsersService struct{ *Client }

type FriendsService struct{ *Client }

type GroupsService struct{ *Client }

type MessagesService struct{ *Client }

type NewsFeedService struct{ *Client }

func (c *Client) Users() UsersService {
	return UsersService{Client: c}
}

func (c *Client) Friends() FriendsService {
	return FriendsService{Client: c}
}

func (c *Client) Groups() GroupsService {
	return GroupsService{Client: c}
}

func (c *Client) Messages() MessagesService {
	return MessagesService{Client: c}
}

func (c *Client) NewsFeed() NewsFeedService {
	return NewsFeedService{Client: c}
}
