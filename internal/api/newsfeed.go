package api

import (
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// NewsType classifies a news feed item. Unknown server values are kept as-is.
type NewsType string

const (
	NewsPost      NewsType = "post"
	NewsPhoto     NewsType = "photo"
	NewsPhotoTag  NewsType = "photo_tag"
	NewsWallPhoto NewsType = "wall_photo"
	NewsFriend    NewsType = "friend"
	NewsNote      NewsType = "note"
)

// NewsTypes lists the news feed filters the server accepts.
var NewsTypes = []string{"post", "photo", "photo_tag", "wall_photo", "friend", "note"}

// Comments summarizes the comment thread of a feed item.
type Comments struct {
	Count   Opt[int64] `json:"count,omitzero"`
	CanPost Opt[bool]  `json:"can_post,omitzero"`
}

// Likes summarizes the likes of a feed item.
type Likes struct {
	Count      Opt[int64] `json:"count,omitzero"`
	UserLikes  Opt[bool]  `json:"user_likes,omitzero"`
	CanLike    Opt[bool]  `json:"can_like,omitzero"`
	CanPublish Opt[bool]  `json:"can_publish,omitzero"`
}

// Reposts summarizes the reposts of a feed item.
type Reposts struct {
	Count        Opt[int64] `json:"count,omitzero"`
	UserReposted Opt[bool]  `json:"user_reposted,omitzero"`
}

// NewsFeedItem is one entry of the news feed.
type NewsFeedItem struct{ f newsItemFields }

type newsItemFields struct {
	Type         Opt[NewsType]     `json:"type,omitzero"`
	SourceID     Opt[int64]        `json:"source_id,omitzero"`
	Date         Opt[int64]        `json:"date,omitzero"`
	PostID       Opt[int64]        `json:"post_id,omitzero"`
	CopyOwnerID  Opt[int64]        `json:"copy_owner_id,omitzero"`
	CopyPostID   Opt[int64]        `json:"copy_post_id,omitzero"`
	CopyPostDate Opt[int64]        `json:"copy_post_date,omitzero"`
	Text         Opt[string]       `json:"text,omitzero"`
	Comments     Opt[Comments]     `json:"comments,omitzero"`
	Likes        Opt[Likes]        `json:"likes,omitzero"`
	Reposts      Opt[Reposts]      `json:"reposts,omitzero"`
	Attachments  Opt[[]Attachment] `json:"attachments,omitzero"`
}

// NewsFeedItemFromJSON maps one feed item object.
func NewsFeedItemFromJSON(obj gjson.Result) NewsFeedItem {
	var f newsItemFields
	if t, ok := optString(obj, "type").Get(); ok {
		f.Type = Some(NewsType(t))
	}
	f.SourceID = optInt64(obj, "source_id")
	f.Date = optInt64(obj, "date")
	f.PostID = optInt64(obj, "post_id")
	f.CopyOwnerID = optInt64(obj, "copy_owner_id")
	f.CopyPostID = optInt64(obj, "copy_post_id")
	f.CopyPostDate = optInt64(obj, "copy_post_date")
	f.Text = optString(obj, "text")
	if c, ok := optObject(obj, "comments"); ok {
		f.Comments = Some(Comments{
			Count:   optInt64(c, "count"),
			CanPost: optFlag(c, "can_post"),
		})
	}
	if l, ok := optObject(obj, "likes"); ok {
		f.Likes = Some(Likes{
			Count:      optInt64(l, "count"),
			UserLikes:  optFlag(l, "user_likes"),
			CanLike:    optFlag(l, "can_like"),
			CanPublish: optFlag(l, "can_publish"),
		})
	}
	if r, ok := optObject(obj, "reposts"); ok {
		f.Reposts = Some(Reposts{
			Count:        optInt64(r, "count"),
			UserReposted: optFlag(r, "user_reposted"),
		})
	}
	if att, ok := member(obj, "attachments"); ok && att.IsArray() {
		f.Attachments = Some(attachmentsFromJSON(att))
	}
	return NewsFeedItem{f: f}
}

func (n NewsFeedItem) Type() Opt[NewsType] { return n.f.Type }
func (n NewsFeedItem) SourceID() Opt[int64] { return n.f.SourceID }
func (n NewsFeedItem) Date() Opt[int64] { return n.f.Date }
func (n NewsFeedItem) PostID() Opt[int64] { return n.f.PostID }
func (n NewsFeedItem) CopyOwnerID() Opt[int64] { return n.f.CopyOwnerID }
func (n NewsFeedItem) CopyPostID() Opt[int64] { return n.f.CopyPostID }
func (n NewsFeedItem) CopyPostDate() Opt[int64] { return n.f.CopyPostDate }
func (n NewsFeedItem) Text() Opt[string] { return n.f.Text }
func (n NewsFeedItem) Comments() Opt[Comments] { return n.f.Comments }
func (n NewsFeedItem) Likes() Opt[Likes] { return n.f.Likes }
func (n NewsFeedItem) Reposts() Opt[Reposts] { return n.f.Reposts }
func (n NewsFeedItem) Attachments() Opt[[]Attachment] { return n.f.Attachments }

func (n NewsFeedItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.f)
}

// NewsFeed is a page of the news feed with the profiles and communities
// that its items reference.
type NewsFeed struct {
	Items     []NewsFeedItem `json:"items"`
	Profiles  []User         `json:"profiles"`
	Groups    []Group        `json:"groups"`
	NewOffset Opt[int64]     `json:"new_offset,omitzero"`
	NewFrom   Opt[string]    `json:"new_from,omitzero"`
}

// NewsFeedFromJSON maps the newsfeed.get response object.
func NewsFeedFromJSON(obj gjson.Result) *NewsFeed {
	return &NewsFeed{
		Items:     mapObjects(obj.Get("items"), false, NewsFeedItemFromJSON),
		Profiles:  UsersFromJSON(obj.Get("profiles"), false),
		Groups:    GroupsFromJSON(obj.Get("groups")),
		NewOffset: optInt64(obj, "new_offset"),
		NewFrom:   optString(obj, "new_from"),
	}
}

// NewsFeedOptions controls newsfeed.get. Times are unix seconds.
type NewsFeedOptions struct {
	Filters   []NewsType
	SourceIDs []string
	StartTime int64
	EndTime   int64
	Offset    int
	Count     int
	From      string
}

// Get returns a page of the current user's news feed.
func (s NewsFeedService) Get(ctx context.Context, opts NewsFeedOptions) (*NewsFeed, error) {
	return getNewsFeed(ctx, s, opts)
}

func getNewsFeed(ctx context.Context, r Requester, opts NewsFeedOptions) (*NewsFeed, error) {
	switch {
	case opts.StartTime < 0:
		return nil, invalid("start time", "must not be negative, got %d", opts.StartTime)
	case opts.EndTime < 0:
		return nil, invalid("end time", "must not be negative, got %d", opts.EndTime)
	case opts.EndTime > 0 && opts.StartTime > opts.EndTime:
		return nil, invalid("start time", "must not be after end time")
	case opts.Count < 0:
		return nil, invalid("count", "must not be negative, got %d", opts.Count)
	case opts.Offset < 0:
		return nil, invalid("offset", "must not be negative, got %d", opts.Offset)
	}
	filters := make([]string, len(opts.Filters))
	for i, f := range opts.Filters {
		filters[i] = string(f)
	}

	p := NewParams("newsfeed.get")
	p.PutStrings("filters", filters)
	p.PutStrings("source_ids", opts.SourceIDs)
	if opts.StartTime > 0 {
		p.PutInt64("start_time", opts.StartTime)
	}
	if opts.EndTime > 0 {
		p.PutInt64("end_time", opts.EndTime)
	}
	if opts.Offset > 0 {
		p.PutInt("offset", opts.Offset)
	}
	if opts.Count > 0 {
		p.PutInt("count", opts.Count)
	}
	p.Put("from", opts.From)

	env, err := r.Execute(ctx, p)
	if err != nil {
		return nil, err
	}
	resp := env.Response()
	if !resp.IsObject() {
		return nil, &ProtocolError{Reason: "newsfeed.get: expected an object response"}
	}
	return NewsFeedFromJSON(resp), nil
}
