package api

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"
)

// Request limits documented for the groups section.
const (
	MaxGroupsPerGet     = 1000
	MaxGroupsPerGetByID = 500
)

// GroupFilter narrows groups.get to a category of communities.
type GroupFilter string

const (
	GroupFilterAdmin   GroupFilter = "admin"
	GroupFilterGroups  GroupFilter = "groups"
	GroupFilterPublics GroupFilter = "publics"
	GroupFilterEvents  GroupFilter = "events"
)

// GroupFilters lists the accepted GroupFilter values.
var GroupFilters = []string{"admin", "groups", "publics", "events"}

// GroupFields lists every community field the Group mapper understands.
var GroupFields = []string{
	"gid", "name", "screen_name", "is_closed", "is_admin", "photo",
	"photo_medium", "photo_big", "city", "country", "description",
	"wiki_page", "members_count", "can_post", "activity",
}

// DefaultGroupFields is requested by extended groups.get when the caller
// asks for nothing.
var DefaultGroupFields = []string{"gid", "city", "country", "description", "wiki_page", "members_count", "can_post", "activity"}

// Group is a vk.com community (group, public page or event).
type Group struct{ f groupFields }

type groupFields struct {
	ID           Opt[int64]  `json:"gid,omitzero"`
	Name         Opt[string] `json:"name,omitzero"`
	ScreenName   Opt[string] `json:"screen_name,omitzero"`
	IsClosed     Opt[bool]   `json:"is_closed,omitzero"`
	IsAdmin      Opt[bool]   `json:"is_admin,omitzero"`
	Photo        Opt[string] `json:"photo,omitzero"`
	PhotoMedium  Opt[string] `json:"photo_medium,omitzero"`
	PhotoBig     Opt[string] `json:"photo_big,omitzero"`
	City         Opt[int64]  `json:"city,omitzero"`
	Country      Opt[int64]  `json:"country,omitzero"`
	Description  Opt[string] `json:"description,omitzero"`
	WikiPage     Opt[string] `json:"wiki_page,omitzero"`
	MembersCount Opt[int64]  `json:"members_count,omitzero"`
	CanPost      Opt[bool]   `json:"can_post,omitzero"`
	Activity     Opt[string] `json:"activity,omitzero"`
}

// GroupFromJSON maps one community object.
func GroupFromJSON(obj gjson.Result) Group {
	var f groupFields
	f.ID = optInt64(obj, "gid")
	if !f.ID.Present() {
		f.ID = optInt64(obj, "id")
	}
	f.Name = optString(obj, "name")
	f.ScreenName = optString(obj, "screen_name")
	f.IsClosed = optFlag(obj, "is_closed")
	f.IsAdmin = optFlag(obj, "is_admin")
	f.Photo = optString(obj, "photo")
	f.PhotoMedium = optString(obj, "photo_medium")
	f.PhotoBig = optString(obj, "photo_big")
	f.City = optInt64(obj, "city")
	f.Country = optInt64(obj, "country")
	f.Description = optString(obj, "description")
	f.WikiPage = optString(obj, "wiki_page")
	f.MembersCount = optInt64(obj, "members_count")
	f.CanPost = optFlag(obj, "can_post")
	f.Activity = optString(obj, "activity")
	return Group{f: f}
}

// GroupsFromJSON maps the object elements of arr. Counts injected into the
// array are skipped along with any other non-object element.
func GroupsFromJSON(arr gjson.Result) []Group {
	return mapObjects(arr, false, GroupFromJSON)
}

func (g Group) ID() Opt[int64] { return g.f.ID }
func (g Group) Name() Opt[string] { return g.f.Name }
func (g Group) ScreenName() Opt[string] { return g.f.ScreenName }
func (g Group) IsClosed() Opt[bool] { return g.f.IsClosed }
func (g Group) IsAdmin() Opt[bool] { return g.f.IsAdmin }
func (g Group) Photo() Opt[string] { return g.f.Photo }
func (g Group) PhotoMedium() Opt[string] { return g.f.PhotoMedium }
func (g Group) PhotoBig() Opt[string] { return g.f.PhotoBig }
func (g Group) City() Opt[int64] { return g.f.City }
func (g Group) Country() Opt[int64] { return g.f.Country }
func (g Group) Description() Opt[string] { return g.f.Description }
func (g Group) WikiPage() Opt[string] { return g.f.WikiPage }
func (g Group) MembersCount() Opt[int64] { return g.f.MembersCount }
func (g Group) CanPost() Opt[bool] { return g.f.CanPost }
func (g Group) Activity() Opt[string] { return g.f.Activity }

func (g Group) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.f)
}

// GroupMembership is the extended groups.isMember reply.
type GroupMembership struct{ f membershipFields }

type membershipFields struct {
	Member     Opt[bool] `json:"member,omitzero"`
	Request    Opt[bool] `json:"request,omitzero"`
	Invitation Opt[bool] `json:"invitation,omitzero"`
}

// GroupMembershipFromJSON maps the extended membership object.
func GroupMembershipFromJSON(obj gjson.Result) GroupMembership {
	return GroupMembership{f: membershipFields{
		Member:     optFlag(obj, "member"),
		Request:    optFlag(obj, "request"),
		Invitation: optFlag(obj, "invitation"),
	}}
}

func (m GroupMembership) Member() Opt[bool] { return m.f.Member }
func (m GroupMembership) Request() Opt[bool] { return m.f.Request }
func (m GroupMembership) Invitation() Opt[bool] { return m.f.Invitation }

func (m GroupMembership) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.f)
}

// GroupIDs is the plain groups.get reply.
type GroupIDs struct {
	Count int     `json:"count"`
	IDs   []int64 `json:"gids"`
}

// GroupList is a page of communities with the server-reported total.
type GroupList struct {
	Count  int     `json:"count"`
	Groups []Group `json:"groups"`
}

// GroupsGetOptions controls groups.get. Count zero leaves it unset; the
// reply then carries no count slot.
type GroupsGetOptions struct {
	Filters []GroupFilter
	Fields  []string
	Offset  int
	Count   int
}

func (o GroupsGetOptions) validate() error {
	if o.Count < 0 || o.Count > MaxGroupsPerGet {
		return invalid("count", "must be between 0 and %d, got %d", MaxGroupsPerGet, o.Count)
	}
	if o.Offset < 0 {
		return invalid("offset", "must not be negative, got %d", o.Offset)
	}
	for _, f := range o.Filters {
		if !validGroupFilter(f) {
			return NewAllowedValuesError("filter", string(f), GroupFilters)
		}
	}
	return nil
}

func validGroupFilter(f GroupFilter) bool {
	for _, v := range GroupFilters {
		if string(f) == v {
			return true
		}
	}
	return false
}

func (o GroupsGetOptions) put(p *Params) {
	filters := make([]string, len(o.Filters))
	for i, f := range o.Filters {
		filters[i] = string(f)
	}
	p.PutStrings("filter", filters)
	if o.Offset > 0 {
		p.PutInt("offset", o.Offset)
	}
	if o.Count > 0 {
		p.PutInt("count", o.Count)
	}
}

// Get lists the community ids of uid, or of the current user when uid is 0.
func (s GroupsService) Get(ctx context.Context, uid int64, opts GroupsGetOptions) (*GroupIDs, error) {
	return getGroupIDs(ctx, s, uid, opts)
}

func getGroupIDs(ctx context.Context, r Requester, uid int64, opts GroupsGetOptions) (*GroupIDs, error) {
	if uid < 0 {
		return nil, invalid("uid", "must not be negative, got %d", uid)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	p := NewParams("groups.get")
	if uid > 0 {
		p.PutInt64("uid", uid)
	}
	opts.put(p)

	resp, err := arrayResponse(ctx, r, p)
	if err != nil {
		return nil, err
	}
	// The count slot is present only when a count was requested.
	withCount := opts.Count > 0
	ids := mapIDs(resp, withCount)
	if !withCount {
		return &GroupIDs{Count: len(ids), IDs: ids}, nil
	}
	return &GroupIDs{Count: leadingCount(resp), IDs: ids}, nil
}

// GetExtended lists the communities of uid with their fields.
func (s GroupsService) GetExtended(ctx context.Context, uid int64, opts GroupsGetOptions) (*GroupList, error) {
	return getGroupsExtended(ctx, s, uid, opts)
}

func getGroupsExtended(ctx context.Context, r Requester, uid int64, opts GroupsGetOptions) (*GroupList, error) {
	if uid < 0 {
		return nil, invalid("uid", "must not be negative, got %d", uid)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	p := NewParams("groups.get")
	if uid > 0 {
		p.PutInt64("uid", uid)
	}
	p.PutBool("extended", true)
	fields := opts.Fields
	if len(fields) == 0 {
		fields = DefaultGroupFields
	}
	p.PutStrings("fields", fields)
	opts.put(p)

	resp, err := arrayResponse(ctx, r, p)
	if err != nil {
		return nil, err
	}
	return &GroupList{Count: leadingCount(resp), Groups: GroupsFromJSON(resp)}, nil
}

// GetByID fetches communities by id or screen name.
func (s GroupsService) GetByID(ctx context.Context, ids []string, fields []string) ([]Group, error) {
	return getGroupsByID(ctx, s, ids, fields)
}

func getGroupsByID(ctx context.Context, r Requester, ids []string, fields []string) ([]Group, error) {
	if len(ids) == 0 {
		return nil, invalid("group ids", "must contain at least one id")
	}
	if len(ids) > MaxGroupsPerGetByID {
		return nil, invalid("group ids", "at most %d per call, got %d", MaxGroupsPerGetByID, len(ids))
	}
	p := NewParams("groups.getById")
	p.PutStrings("gids", ids)
	p.PutStrings("fields", fields)

	resp, err := arrayResponse(ctx, r, p)
	if err != nil {
		return nil, err
	}
	return GroupsFromJSON(resp), nil
}

// IsMember reports whether uid (0 for the current user) belongs to the
// community gid, given as an id or screen name.
func (s GroupsService) IsMember(ctx context.Context, gid string, uid int64) (bool, error) {
	return isGroupMember(ctx, s, gid, uid)
}

func isMemberParams(gid string, uid int64) (*Params, error) {
	if gid == "" {
		return nil, invalid("group id", "is required")
	}
	if uid < 0 {
		return nil, invalid("uid", "must not be negative, got %d", uid)
	}
	p := NewParams("groups.isMember")
	p.Put("gid", gid)
	if uid > 0 {
		p.PutInt64("uid", uid)
	}
	return p, nil
}

func isGroupMember(ctx context.Context, r Requester, gid string, uid int64) (bool, error) {
	p, err := isMemberParams(gid, uid)
	if err != nil {
		return false, err
	}
	n, err := intResponse(ctx, r, p)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// IsMemberExtended reports membership, pending request and invitation state.
func (s GroupsService) IsMemberExtended(ctx context.Context, gid string, uid int64) (GroupMembership, error) {
	return isGroupMemberExtended(ctx, s, gid, uid)
}

func isGroupMemberExtended(ctx context.Context, r Requester, gid string, uid int64) (GroupMembership, error) {
	p, err := isMemberParams(gid, uid)
	if err != nil {
		return GroupMembership{}, err
	}
	p.PutBool("extended", true)

	env, err := r.Execute(ctx, p)
	if err != nil {
		return GroupMembership{}, err
	}
	resp := env.Response()
	if !resp.IsObject() {
		return GroupMembership{}, &ProtocolError{Reason: "groups.isMember: expected an object response"}
	}
	return GroupMembershipFromJSON(resp), nil
}

// Search finds communities by free-text query.
func (s GroupsService) Search(ctx context.Context, query string, offset, count int) (*GroupList, error) {
	return searchGroups(ctx, s, query, offset, count)
}

func searchGroups(ctx context.Context, r Requester, query string, offset, count int) (*GroupList, error) {
	if query == "" {
		return nil, invalid("query", "must not be empty")
	}
	if offset < 0 {
		return nil, invalid("offset", "must not be negative, got %d", offset)
	}
	if count < 0 {
		return nil, invalid("count", "must not be negative, got %d", count)
	}
	p := NewParams("groups.search")
	p.Put("q", query)
	if offset > 0 {
		p.PutInt("offset", offset)
	}
	if count > 0 {
		p.PutInt("count", count)
	}

	resp, err := arrayResponse(ctx, r, p)
	if err != nil {
		return nil, err
	}
	return &GroupList{Count: leadingCount(resp), Groups: GroupsFromJSON(resp)}, nil
}

// arrayResponse executes p and requires an array response; its absence is
// a protocol error for the endpoints that use it.
func arrayResponse(ctx context.Context, r Requester, p *Params) (gjson.Result, error) {
	env, err := r.Execute(ctx, p)
	if err != nil {
		return gjson.Result{}, err
	}
	resp := env.Response()
	if !resp.IsArray() {
		return gjson.Result{}, &ProtocolError{Reason: p.Method() + ": response array is missing"}
	}
	return resp, nil
}

// GroupIDStrings renders numeric community ids for GetByID.
func GroupIDStrings(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}
