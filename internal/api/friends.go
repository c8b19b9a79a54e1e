package api

import (
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// DefaultFriendFields is requested by the extended friends.get variant when
// the caller asks for nothing.
var DefaultFriendFields = []string{"uid", "first_name", "last_name"}

// FriendsOrder sorts friends.get results.
type FriendsOrder string

const (
	FriendsOrderName  FriendsOrder = "name"
	FriendsOrderHints FriendsOrder = "hints"
)

// FriendsOrders lists the accepted FriendsOrder values.
var FriendsOrders = []string{"name", "hints"}

// Friendship states reported by friends.areFriends.
const (
	FriendStatusNone     = 0
	FriendStatusOutgoing = 1
	FriendStatusIncoming = 2
	FriendStatusMutual   = 3
)

// FriendshipStatus is the relation between the current user and another user.
type FriendshipStatus struct{ f friendshipFields }

type friendshipFields struct {
	UserID         Opt[int64]  `json:"uid,omitzero"`
	FriendStatus   Opt[int]    `json:"friend_status,omitzero"`
	RequestMessage Opt[string] `json:"request_message,omitzero"`
}

// FriendshipStatusFromJSON maps one areFriends entry.
func FriendshipStatusFromJSON(obj gjson.Result) FriendshipStatus {
	return FriendshipStatus{f: friendshipFields{
		UserID:         optInt64(obj, "uid"),
		FriendStatus:   optInt(obj, "friend_status"),
		RequestMessage: optString(obj, "request_message"),
	}}
}

func (s FriendshipStatus) UserID() Opt[int64] { return s.f.UserID }
func (s FriendshipStatus) FriendStatus() Opt[int] { return s.f.FriendStatus }
func (s FriendshipStatus) RequestMessage() Opt[string] { return s.f.RequestMessage }

func (s FriendshipStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.f)
}

// FriendsGetOptions controls the extended friends.get variant.
type FriendsGetOptions struct {
	Fields   []string
	NameCase NameCase
	Count    int
	Offset   int
	ListID   int64
	Order    FriendsOrder
}

// GetIDs lists the friend ids of uid, or of the current user when uid is 0.
func (s FriendsService) GetIDs(ctx context.Context, uid int64) ([]int64, error) {
	return getFriendIDs(ctx, s, uid)
}

func getFriendIDs(ctx context.Context, r Requester, uid int64) ([]int64, error) {
	if uid < 0 {
		return nil, invalid("uid", "must not be negative, got %d", uid)
	}
	p := NewParams("friends.get")
	if uid > 0 {
		p.PutInt64("uid", uid)
	}
	return idListResponse(ctx, r, p)
}

// Get lists friends of uid as profiles.
func (s FriendsService) Get(ctx context.Context, uid int64, opts FriendsGetOptions) ([]User, error) {
	return getFriends(ctx, s, uid, opts)
}

func getFriends(ctx context.Context, r Requester, uid int64, opts FriendsGetOptions) ([]User, error) {
	switch {
	case uid < 0:
		return nil, invalid("uid", "must not be negative, got %d", uid)
	case opts.Count < 0:
		return nil, invalid("count", "must not be negative, got %d", opts.Count)
	case opts.Offset < 0:
		return nil, invalid("offset", "must not be negative, got %d", opts.Offset)
	case opts.ListID < 0:
		return nil, invalid("list id", "must not be negative, got %d", opts.ListID)
	case !opts.NameCase.Valid():
		return nil, NewAllowedValuesError("name case", string(opts.NameCase), NameCases)
	case opts.Order != "" && opts.Order != FriendsOrderName && opts.Order != FriendsOrderHints:
		return nil, NewAllowedValuesError("order", string(opts.Order), FriendsOrders)
	}

	fields := opts.Fields
	if len(fields) == 0 {
		fields = DefaultFriendFields
	}
	p := NewParams("friends.get")
	if uid > 0 {
		p.PutInt64("uid", uid)
	}
	p.PutStrings("fields", fields)
	p.Put("name_case", string(opts.NameCase))
	if opts.Count > 0 {
		p.PutInt("count", opts.Count)
	}
	if opts.Offset > 0 {
		p.PutInt("offset", opts.Offset)
	}
	if opts.ListID > 0 {
		p.PutInt64("lid", opts.ListID)
	}
	p.Put("order", string(opts.Order))

	env, err := r.Execute(ctx, p)
	if err != nil {
		return nil, err
	}
	resp := env.Response()
	if !resp.IsArray() {
		return []User{}, nil
	}
	return UsersFromJSON(resp, false), nil
}

// GetAppUsers lists friends of the current user who installed the application.
func (s FriendsService) GetAppUsers(ctx context.Context) ([]int64, error) {
	return idListResponse(ctx, s, NewParams("friends.getAppUsers"))
}

// GetOnline lists friends of uid that are online now.
func (s FriendsService) GetOnline(ctx context.Context, uid int64) ([]int64, error) {
	return getOnlineFriends(ctx, s, uid)
}

func getOnlineFriends(ctx context.Context, r Requester, uid int64) ([]int64, error) {
	if uid < 0 {
		return nil, invalid("uid", "must not be negative, got %d", uid)
	}
	p := NewParams("friends.getOnline")
	if uid > 0 {
		p.PutInt64("uid", uid)
	}
	return idListResponse(ctx, r, p)
}

// GetMutual lists friends shared by source (0 for the current user) and target.
func (s FriendsService) GetMutual(ctx context.Context, target, source int64) ([]int64, error) {
	return getMutualFriends(ctx, s, target, source)
}

func getMutualFriends(ctx context.Context, r Requester, target, source int64) ([]int64, error) {
	if target <= 0 {
		return nil, invalid("target uid", "is required")
	}
	if source < 0 {
		return nil, invalid("source uid", "must not be negative, got %d", source)
	}
	p := NewParams("friends.getMutual")
	p.PutInt64("target_uid", target)
	if source > 0 {
		p.PutInt64("source_uid", source)
	}
	return idListResponse(ctx, r, p)
}

// AreFriends reports the friendship status with each of uids.
func (s FriendsService) AreFriends(ctx context.Context, uids []int64) ([]FriendshipStatus, error) {
	return areFriends(ctx, s, uids)
}

func areFriends(ctx context.Context, r Requester, uids []int64) ([]FriendshipStatus, error) {
	if len(uids) == 0 {
		return nil, invalid("uids", "must not be empty")
	}
	p := NewParams("friends.areFriends")
	p.PutIDs("uids", uids)

	env, err := r.Execute(ctx, p)
	if err != nil {
		return nil, err
	}
	resp := env.Response()
	if !resp.IsArray() {
		return []FriendshipStatus{}, nil
	}
	return mapObjects(resp, false, FriendshipStatusFromJSON), nil
}

// idListResponse executes p and reads a plain id array. An absent array is
// an empty result.
func idListResponse(ctx context.Context, r Requester, p *Params) ([]int64, error) {
	env, err := r.Execute(ctx, p)
	if err != nil {
		return nil, err
	}
	resp := env.Response()
	if !resp.IsArray() {
		return []int64{}, nil
	}
	return mapIDs(resp, false), nil
}
