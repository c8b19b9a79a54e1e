package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestUserFromJSONSparse(t *testing.T) {
	u := UserFromJSON(parse(`{"uid":1,"first_name":"A","online_mobile":true}`))

	if id, _ := u.ID().Get(); id != 1 {
		t.Errorf("ID() = %d, want 1", id)
	}
	if name, _ := u.FirstName().Get(); name != "A" {
		t.Errorf("FirstName() = %q, want A", name)
	}
	if mobile, ok := u.OnlineMobile().Get(); !ok || !mobile {
		t.Errorf("OnlineMobile() = %v, %v; want true", mobile, ok)
	}

	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `{"uid":1,"first_name":"A","online_mobile":true}` {
		t.Errorf("unset fields leaked into JSON: %s", data)
	}
}

func TestUserFromJSONPhotoFalse(t *testing.T) {
	u := UserFromJSON(parse(`{"photo_200_orig":"false"}`))
	if u.Photo200Orig().Present() {
		t.Errorf("Photo200Orig() = %q, want absent", u.Photo200Orig().Or(""))
	}

	u = UserFromJSON(parse(`{"photo_200_orig":"https://pp.vk.me/a.jpg"}`))
	if u.Photo200Orig().Or("") != "https://pp.vk.me/a.jpg" {
		t.Errorf("Photo200Orig() = %q", u.Photo200Orig().Or(""))
	}
}

func TestUserFromJSONFields(t *testing.T) {
	u := UserFromJSON(parse(`{
		"id": 7,
		"first_name": "Ivan",
		"last_name": "Petrov",
		"sex": 2,
		"online": 0,
		"has_mobile": 1,
		"last_seen": {"time": 1400000000},
		"city": "",
		"nickname": null
	}`))

	if id, _ := u.ID().Get(); id != 7 {
		t.Errorf("ID() fallback to id = %d, want 7", id)
	}
	if online, ok := u.Online().Get(); !ok || online {
		t.Errorf("Online() = %v, %v; want present false", online, ok)
	}
	if hm, _ := u.HasMobile().Get(); !hm {
		t.Error("HasMobile() = false, want true")
	}
	if seen, _ := u.LastSeen().Get(); seen != 1400000000 {
		t.Errorf("LastSeen() = %d", seen)
	}
	if u.City().Present() {
		t.Error("City() should be absent for an empty string")
	}
	if u.Nickname().Present() {
		t.Error("Nickname() should be absent for null")
	}
	if u.OnlineMobile().Present() {
		t.Error("OnlineMobile() should be absent when the key is missing")
	}
	if u.FullName() != "Ivan Petrov" {
		t.Errorf("FullName() = %q", u.FullName())
	}
}

func TestUsersGet(t *testing.T) {
	fake := &fakeRequester{body: `{"response":[{"uid":1,"first_name":"A"},5,{"uid":2,"first_name":"B"}]}`}

	users, err := getUsers(context.Background(), fake, []string{"1", "2"}, UsersGetOptions{NameCase: NameCaseGenitive})
	if err != nil {
		t.Fatalf("getUsers() error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len(users) = %d, want 2", len(users))
	}
	if fake.got.Method() != "users.get" {
		t.Errorf("method = %q", fake.got.Method())
	}
	if fake.param("uids") != "1,2" {
		t.Errorf("uids = %q, want 1,2", fake.param("uids"))
	}
	if fake.param("fields") != "first_name,last_name,photo_medium_rec,photo_rec,online,sex" {
		t.Errorf("fields = %q, want defaults", fake.param("fields"))
	}
	if fake.param("name_case") != "gen" {
		t.Errorf("name_case = %q, want gen", fake.param("name_case"))
	}
}

func TestUsersGetAbsentResponse(t *testing.T) {
	fake := &fakeRequester{body: `{}`}
	users, err := getUsers(context.Background(), fake, []string{"1"}, UsersGetOptions{})
	if err != nil {
		t.Fatalf("getUsers() error: %v", err)
	}
	if users == nil || len(users) != 0 {
		t.Errorf("users = %v, want empty", users)
	}
}

func TestUsersGetValidation(t *testing.T) {
	tooMany := make([]string, MaxUsersPerGet+1)
	for i := range tooMany {
		tooMany[i] = "1"
	}
	tests := []struct {
		name string
		ids  []string
		opts UsersGetOptions
	}{
		{"empty ids", nil, UsersGetOptions{}},
		{"too many ids", tooMany, UsersGetOptions{}},
		{"bad name case", []string{"1"}, UsersGetOptions{NameCase: "xyz"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeRequester{body: `{"response":[]}`}
			if _, err := getUsers(context.Background(), fake, tt.ids, tt.opts); err == nil {
				t.Error("getUsers() error = nil, want error")
			}
			if fake.calls != 0 {
				t.Errorf("request sent %d times, want 0", fake.calls)
			}
		})
	}
}

func TestUsersSearchSkipsCount(t *testing.T) {
	fake := &fakeRequester{body: `{"response":[120,{"uid":1},{"uid":2}]}`}

	list, err := searchUsers(context.Background(), fake, "pavel", UsersSearchOptions{Count: 2})
	if err != nil {
		t.Fatalf("searchUsers() error: %v", err)
	}
	if list.Count != 120 {
		t.Errorf("Count = %d, want 120", list.Count)
	}
	if len(list.Users) != 2 {
		t.Errorf("len(Users) = %d, want 2", len(list.Users))
	}
	if fake.param("q") != "pavel" || fake.param("count") != "2" {
		t.Errorf("params q=%q count=%q", fake.param("q"), fake.param("count"))
	}
}

func TestUsersSearchValidation(t *testing.T) {
	fake := &fakeRequester{body: `{"response":[0]}`}
	if _, err := searchUsers(context.Background(), fake, "", UsersSearchOptions{}); !IsValidationError(err) {
		t.Errorf("empty query error = %v, want ValidationError", err)
	}
	if _, err := searchUsers(context.Background(), fake, "q", UsersSearchOptions{Count: MaxUsersPerSearch + 1}); !IsValidationError(err) {
		t.Errorf("count over max error = %v, want ValidationError", err)
	}
	if fake.calls != 0 {
		t.Errorf("request sent %d times, want 0", fake.calls)
	}
}

func TestIsAppUser(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{`{"response":1}`, true},
		{`{"response":0}`, false},
		{`{"response":"1"}`, false},
	}
	for _, tt := range tests {
		fake := &fakeRequester{body: tt.body}
		got, err := isAppUser(context.Background(), fake, 0)
		if tt.body == `{"response":"1"}` {
			if !IsProtocolError(err) {
				t.Errorf("isAppUser(%s) error = %v, want ProtocolError", tt.body, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("isAppUser(%s) error: %v", tt.body, err)
		}
		if got != tt.want {
			t.Errorf("isAppUser(%s) = %v, want %v", tt.body, got, tt.want)
		}
		if _, ok := fake.got.Get("uid"); ok {
			t.Error("uid 0 should not be sent")
		}
	}
}

func TestGetUserSettings(t *testing.T) {
	fake := &fakeRequester{body: `{"response":8199}`}
	got, err := getUserSettings(context.Background(), fake, 42)
	if err != nil {
		t.Fatalf("getUserSettings() error: %v", err)
	}
	if got != 8199 {
		t.Errorf("getUserSettings() = %d, want 8199", got)
	}
	if fake.param("uid") != "42" {
		t.Errorf("uid = %q, want 42", fake.param("uid"))
	}
}

func TestUsersGetPropagatesAPIError(t *testing.T) {
	fake := &fakeRequester{body: `{"error":{"error_code":113,"error_msg":"Invalid user id"}}`}
	_, err := getUsers(context.Background(), fake, []string{"x"}, UsersGetOptions{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != VKErrInvalidUserID {
		t.Errorf("error = %v, want API error 113", err)
	}
}
