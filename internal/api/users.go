package api

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"
)

// Request limits documented for the users section.
const (
	MaxUsersPerGet    = 1000
	MaxUsersPerSearch = 1000
)

// DefaultUserFields is requested when a users.get caller asks for nothing.
var DefaultUserFields = []string{"first_name", "last_name", "photo_medium_rec", "photo_rec", "online", "sex"}

// UserFields lists every profile field the User mapper understands.
var UserFields = []string{
	"uid", "first_name", "last_name", "nickname", "screen_name", "sex", "bdate",
	"city", "country", "timezone", "photo", "photo_rec", "photo_medium",
	"photo_medium_rec", "photo_big", "photo_50", "photo_100", "photo_200",
	"photo_200_orig", "photo_400_orig", "photo_max", "photo_max_orig", "online",
	"online_mobile", "online_app", "has_mobile", "contacts", "mobile_phone",
	"home_phone", "rate", "activity", "last_seen", "relation",
}

// NameCase selects the grammatical case of returned names.
type NameCase string

const (
	NameCaseNominative    NameCase = "nom"
	NameCaseGenitive      NameCase = "gen"
	NameCaseDative        NameCase = "dat"
	NameCaseAccusative    NameCase = "acc"
	NameCaseInstrumental  NameCase = "ins"
	NameCasePrepositional NameCase = "abl"
)

// NameCases lists the accepted NameCase values.
var NameCases = []string{"nom", "gen", "dat", "acc", "ins", "abl"}

// Valid reports whether n is empty or one of NameCases.
func (n NameCase) Valid() bool {
	if n == "" {
		return true
	}
	for _, c := range NameCases {
		if string(n) == c {
			return true
		}
	}
	return false
}

// User is a vk.com profile. Every field is optional: the API returns only
// the fields that were requested.
type User struct{ f userFields }

type userFields struct {
	ID             Opt[int64]  `json:"uid,omitzero"`
	FirstName      Opt[string] `json:"first_name,omitzero"`
	LastName       Opt[string] `json:"last_name,omitzero"`
	Nickname       Opt[string] `json:"nickname,omitzero"`
	ScreenName     Opt[string] `json:"screen_name,omitzero"`
	Sex            Opt[int]    `json:"sex,omitzero"`
	BirthDate      Opt[string] `json:"bdate,omitzero"`
	City           Opt[int64]  `json:"city,omitzero"`
	Country        Opt[int64]  `json:"country,omitzero"`
	Timezone       Opt[int]    `json:"timezone,omitzero"`
	Photo          Opt[string] `json:"photo,omitzero"`
	PhotoRec       Opt[string] `json:"photo_rec,omitzero"`
	PhotoMedium    Opt[string] `json:"photo_medium,omitzero"`
	PhotoMediumRec Opt[string] `json:"photo_medium_rec,omitzero"`
	PhotoBig       Opt[string] `json:"photo_big,omitzero"`
	Photo50        Opt[string] `json:"photo_50,omitzero"`
	Photo100       Opt[string] `json:"photo_100,omitzero"`
	Photo200       Opt[string] `json:"photo_200,omitzero"`
	Photo200Orig   Opt[string] `json:"photo_200_orig,omitzero"`
	Photo400Orig   Opt[string] `json:"photo_400_orig,omitzero"`
	PhotoMax       Opt[string] `json:"photo_max,omitzero"`
	PhotoMaxOrig   Opt[string] `json:"photo_max_orig,omitzero"`
	Online         Opt[bool]   `json:"online,omitzero"`
	OnlineMobile   Opt[bool]   `json:"online_mobile,omitzero"`
	OnlineApp      Opt[int64]  `json:"online_app,omitzero"`
	HasMobile      Opt[bool]   `json:"has_mobile,omitzero"`
	MobilePhone    Opt[string] `json:"mobile_phone,omitzero"`
	HomePhone      Opt[string] `json:"home_phone,omitzero"`
	Rate           Opt[string] `json:"rate,omitzero"`
	Activity       Opt[string] `json:"activity,omitzero"`
	LastSeen       Opt[int64]  `json:"last_seen,omitzero"`
	Relation       Opt[int]    `json:"relation,omitzero"`
}

// UserFromJSON maps one profile object.
func UserFromJSON(obj gjson.Result) User {
	var f userFields
	f.ID = optInt64(obj, "uid")
	if !f.ID.Present() {
		f.ID = optInt64(obj, "id")
	}
	f.FirstName = optString(obj, "first_name")
	f.LastName = optString(obj, "last_name")
	f.Nickname = optString(obj, "nickname")
	f.ScreenName = optString(obj, "screen_name")
	f.Sex = optInt(obj, "sex")
	f.BirthDate = optString(obj, "bdate")
	f.City = optInt64(obj, "city")
	f.Country = optInt64(obj, "country")
	f.Timezone = optInt(obj, "timezone")
	f.Photo = optString(obj, "photo")
	f.PhotoRec = optString(obj, "photo_rec")
	f.PhotoMedium = optString(obj, "photo_medium")
	f.PhotoMediumRec = optString(obj, "photo_medium_rec")
	f.PhotoBig = optString(obj, "photo_big")
	f.Photo50 = optString(obj, "photo_50")
	f.Photo100 = optString(obj, "photo_100")
	f.Photo200 = optString(obj, "photo_200")
	// This legacy field reports a missing photo as the string "false".
	if s, ok := optString(obj, "photo_200_orig").Get(); ok && s != "false" {
		f.Photo200Orig = Some(s)
	}
	f.Photo400Orig = optString(obj, "photo_400_orig")
	f.PhotoMax = optString(obj, "photo_max")
	f.PhotoMaxOrig = optString(obj, "photo_max_orig")
	f.Online = optFlag(obj, "online")
	if hasKey(obj, "online_mobile") {
		f.OnlineMobile = Some(true)
	}
	f.OnlineApp = optInt64(obj, "online_app")
	f.HasMobile = optFlag(obj, "has_mobile")
	f.MobilePhone = optString(obj, "mobile_phone")
	f.HomePhone = optString(obj, "home_phone")
	f.Rate = optString(obj, "rate")
	f.Activity = optString(obj, "activity")
	if seen, ok := optObject(obj, "last_seen"); ok {
		f.LastSeen = optInt64(seen, "time")
	}
	f.Relation = optInt(obj, "relation")
	return User{f: f}
}

// UsersFromJSON maps an array of profiles, skipping non-object elements.
// When skipCount is set the first slot holds a total count.
func UsersFromJSON(arr gjson.Result, skipCount bool) []User {
	return mapObjects(arr, skipCount, UserFromJSON)
}

func (u User) ID() Opt[int64] { return u.f.ID }
func (u User) FirstName() Opt[string] { return u.f.FirstName }
func (u User) LastName() Opt[string] { return u.f.LastName }
func (u User) Nickname() Opt[string] { return u.f.Nickname }
func (u User) ScreenName() Opt[string] { return u.f.ScreenName }
func (u User) Sex() Opt[int] { return u.f.Sex }
func (u User) BirthDate() Opt[string] { return u.f.BirthDate }
func (u User) City() Opt[int64] { return u.f.City }
func (u User) Country() Opt[int64] { return u.f.Country }
func (u User) Timezone() Opt[int] { return u.f.Timezone }
func (u User) Photo() Opt[string] { return u.f.Photo }
func (u User) PhotoRec() Opt[string] { return u.f.PhotoRec }
func (u User) PhotoMedium() Opt[string] { return u.f.PhotoMedium }
func (u User) PhotoMediumRec() Opt[string] { return u.f.PhotoMediumRec }
func (u User) PhotoBig() Opt[string] { return u.f.PhotoBig }
func (u User) Photo50() Opt[string] { return u.f.Photo50 }
func (u User) Photo100() Opt[string] { return u.f.Photo100 }
func (u User) Photo200() Opt[string] { return u.f.Photo200 }
func (u User) Photo200Orig() Opt[string] { return u.f.Photo200Orig }
func (u User) Photo400Orig() Opt[string] { return u.f.Photo400Orig }
func (u User) PhotoMax() Opt[string] { return u.f.PhotoMax }
func (u User) PhotoMaxOrig() Opt[string] { return u.f.PhotoMaxOrig }
func (u User) Online() Opt[bool] { return u.f.Online }
func (u User) OnlineMobile() Opt[bool] { return u.f.OnlineMobile }
func (u User) OnlineApp() Opt[int64] { return u.f.OnlineApp }
func (u User) HasMobile() Opt[bool] { return u.f.HasMobile }
func (u User) MobilePhone() Opt[string] { return u.f.MobilePhone }
func (u User) HomePhone() Opt[string] { return u.f.HomePhone }
func (u User) Rate() Opt[string] { return u.f.Rate }
func (u User) Activity() Opt[string] { return u.f.Activity }
func (u User) LastSeen() Opt[int64] { return u.f.LastSeen }
func (u User) Relation() Opt[int] { return u.f.Relation }

// FullName joins the first and last name that are present.
func (u User) FullName() string {
	first := u.f.FirstName.Or("")
	last := u.f.LastName.Or("")
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}

func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.f)
}

// UsersGetOptions controls users.get.
type UsersGetOptions struct {
	Fields   []string
	NameCase NameCase
}

// Get fetches profiles by numeric id.
func (s UsersService) Get(ctx context.Context, ids []int64, opts UsersGetOptions) ([]User, error) {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = strconv.FormatInt(id, 10)
	}
	return getUsers(ctx, s, names, opts)
}

// GetByScreenName fetches profiles by id or screen name, as users.get accepts both.
func (s UsersService) GetByScreenName(ctx context.Context, names []string, opts UsersGetOptions) ([]User, error) {
	return getUsers(ctx, s, names, opts)
}

func getUsers(ctx context.Context, r Requester, ids []string, opts UsersGetOptions) ([]User, error) {
	if len(ids) == 0 {
		return nil, invalid("user ids", "must not be empty")
	}
	if len(ids) > MaxUsersPerGet {
		return nil, invalid("user ids", "at most %d per call, got %d", MaxUsersPerGet, len(ids))
	}
	if !opts.NameCase.Valid() {
		return nil, NewAllowedValuesError("name case", string(opts.NameCase), NameCases)
	}
	fields := opts.Fields
	if len(fields) == 0 {
		fields = DefaultUserFields
	}

	p := NewParams("users.get")
	p.PutStrings("uids", ids)
	p.PutStrings("fields", fields)
	p.Put("name_case", string(opts.NameCase))

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

// UsersSearchOptions controls users.search.
type UsersSearchOptions struct {
	Fields []string
	Offset int
	Count  int
}

// UserList is a page of users with the server-reported total.
type UserList struct {
	Count int    `json:"count"`
	Users []User `json:"users"`
}

// Search finds users by free-text query.
func (s UsersService) Search(ctx context.Context, query string, opts UsersSearchOptions) (*UserList, error) {
	return searchUsers(ctx, s, query, opts)
}

func searchUsers(ctx context.Context, r Requester, query string, opts UsersSearchOptions) (*UserList, error) {
	if query == "" {
		return nil, invalid("query", "must not be empty")
	}
	if opts.Count < 0 || opts.Count > MaxUsersPerSearch {
		return nil, invalid("count", "must be between 0 and %d, got %d", MaxUsersPerSearch, opts.Count)
	}
	if opts.Offset < 0 {
		return nil, invalid("offset", "must not be negative, got %d", opts.Offset)
	}

	p := NewParams("users.search")
	p.Put("q", query)
	p.PutStrings("fields", opts.Fields)
	if opts.Offset > 0 {
		p.PutInt("offset", opts.Offset)
	}
	if opts.Count > 0 {
		p.PutInt("count", opts.Count)
	}

	env, err := r.Execute(ctx, p)
	if err != nil {
		return nil, err
	}
	resp := env.Response()
	if !resp.IsArray() {
		return &UserList{Users: []User{}}, nil
	}
	return &UserList{Count: leadingCount(resp), Users: UsersFromJSON(resp, true)}, nil
}

// IsAppUser reports whether the user installed the calling application.
// A zero uid means the current user.
func (s UsersService) IsAppUser(ctx context.Context, uid int64) (bool, error) {
	return isAppUser(ctx, s, uid)
}

func isAppUser(ctx context.Context, r Requester, uid int64) (bool, error) {
	if uid < 0 {
		return false, invalid("uid", "must not be negative, got %d", uid)
	}
	p := NewParams("isAppUser")
	if uid > 0 {
		p.PutInt64("uid", uid)
	}
	n, err := intResponse(ctx, r, p)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetSettings returns the application permission bit mask granted by the user.
// A zero uid means the current user.
func (s UsersService) GetSettings(ctx context.Context, uid int64) (int64, error) {
	return getUserSettings(ctx, s, uid)
}

func getUserSettings(ctx context.Context, r Requester, uid int64) (int64, error) {
	if uid < 0 {
		return 0, invalid("uid", "must not be negative, got %d", uid)
	}
	p := NewParams("getUserSettings")
	if uid > 0 {
		p.PutInt64("uid", uid)
	}
	return intResponse(ctx, r, p)
}

// intResponse executes p and reads a bare integer response.
func intResponse(ctx context.Context, r Requester, p *Params) (int64, error) {
	env, err := r.Execute(ctx, p)
	if err != nil {
		return 0, err
	}
	resp := env.Response()
	if resp.Type != gjson.Number {
		return 0, &ProtocolError{Reason: p.Method() + ": expected an integer response"}
	}
	return resp.Int(), nil
}
