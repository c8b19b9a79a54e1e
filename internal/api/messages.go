package api

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Request limits documented for the messages section.
const (
	MaxMessagesPerGet     = 100
	MaxMessagesPerHistory = 200
)

// Attachment is a typed attachment; the payload is kept verbatim.
type Attachment struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body,omitempty"`
}

// attachmentsFromJSON maps an attachments array, skipping untyped entries.
func attachmentsFromJSON(arr gjson.Result) []Attachment {
	out := make([]Attachment, 0)
	for _, item := range arr.Array() {
		kind, ok := optString(item, "type").Get()
		if !ok || kind == "" {
			continue
		}
		a := Attachment{Type: kind}
		if body := item.Get(kind); body.Exists() {
			a.Body = json.RawMessage(body.Raw)
		}
		out = append(out, a)
	}
	return out
}

// Message is a private or chat message. Forwarded messages form a tree that
// the mapper walks recursively.
type Message struct{ f messageFields }

type messageFields struct {
	ID          Opt[int64]        `json:"mid,omitzero"`
	UserID      Opt[int64]        `json:"uid,omitzero"`
	FromID      Opt[int64]        `json:"from_id,omitzero"`
	Date        Opt[int64]        `json:"date,omitzero"`
	ReadState   Opt[bool]         `json:"read_state,omitzero"`
	Out         Opt[bool]         `json:"out,omitzero"`
	Title       Opt[string]       `json:"title,omitzero"`
	Body        Opt[string]       `json:"body,omitzero"`
	Forwarded   Opt[[]Message]    `json:"fwd_messages,omitzero"`
	Attachments Opt[[]Attachment] `json:"attachments,omitzero"`
	ChatID      Opt[int64]        `json:"chat_id,omitzero"`
	ChatActive  Opt[[]int64]      `json:"chat_active,omitzero"`
	UsersCount  Opt[int]          `json:"users_count,omitzero"`
	AdminID     Opt[int64]        `json:"admin_id,omitzero"`
	Deleted     Opt[bool]         `json:"deleted,omitzero"`
	Emoji       Opt[bool]         `json:"emoji,omitzero"`
}

// MessageFromJSON maps one message object.
func MessageFromJSON(obj gjson.Result) Message {
	var f messageFields
	f.ID = optInt64(obj, "mid")
	if !f.ID.Present() {
		f.ID = optInt64(obj, "id")
	}
	f.UserID = optInt64(obj, "uid")
	f.FromID = optInt64(obj, "from_id")
	f.Date = optInt64(obj, "date")
	f.ReadState = optFlag(obj, "read_state")
	f.Out = optFlag(obj, "out")
	f.Title = optText(obj, "title")
	f.Body = optText(obj, "body")
	if fwd, ok := member(obj, "fwd_messages"); ok && fwd.IsArray() {
		f.Forwarded = Some(mapObjects(fwd, false, MessageFromJSON))
	}
	if att, ok := member(obj, "attachments"); ok && att.IsArray() {
		f.Attachments = Some(attachmentsFromJSON(att))
	}
	f.ChatID = optInt64(obj, "chat_id")
	if s, ok := optString(obj, "chat_active").Get(); ok {
		f.ChatActive = Some(splitIDs(s))
	}
	f.UsersCount = optInt(obj, "users_count")
	f.AdminID = optInt64(obj, "admin_id")
	if hasKey(obj, "deleted") {
		f.Deleted = Some(true)
	}
	if hasKey(obj, "emoji") {
		f.Emoji = Some(true)
	}
	return Message{f: f}
}

// MessagesFromJSON maps a message array. When skipCount is set the first
// slot holds the total count.
func MessagesFromJSON(arr gjson.Result, skipCount bool) []Message {
	return mapObjects(arr, skipCount, MessageFromJSON)
}

// splitIDs parses "1,2,3"; unparsable entries are dropped and "" is empty.
func splitIDs(s string) []int64 {
	out := make([]int64, 0)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func (m Message) ID() Opt[int64] { return m.f.ID }
func (m Message) UserID() Opt[int64] { return m.f.UserID }
func (m Message) FromID() Opt[int64] { return m.f.FromID }
func (m Message) Date() Opt[int64] { return m.f.Date }
func (m Message) ReadState() Opt[bool] { return m.f.ReadState }
func (m Message) Out() Opt[bool] { return m.f.Out }
func (m Message) Title() Opt[string] { return m.f.Title }
func (m Message) Body() Opt[string] { return m.f.Body }
func (m Message) Forwarded() Opt[[]Message] { return m.f.Forwarded }
func (m Message) Attachments() Opt[[]Attachment] { return m.f.Attachments }
func (m Message) ChatID() Opt[int64] { return m.f.ChatID }
func (m Message) ChatActive() Opt[[]int64] { return m.f.ChatActive }
func (m Message) UsersCount() Opt[int] { return m.f.UsersCount }
func (m Message) AdminID() Opt[int64] { return m.f.AdminID }
func (m Message) Deleted() Opt[bool] { return m.f.Deleted }
func (m Message) Emoji() Opt[bool] { return m.f.Emoji }

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.f)
}

// MessagesGetOptions controls messages.get.
type MessagesGetOptions struct {
	Out        bool
	Offset     int
	Count      int
	TimeOffset int64
}

// Get lists incoming (or, with Out, sent) messages.
func (s MessagesService) Get(ctx context.Context, opts MessagesGetOptions) ([]Message, error) {
	return getMessages(ctx, s, opts)
}

func getMessages(ctx context.Context, r Requester, opts MessagesGetOptions) ([]Message, error) {
	switch {
	case opts.Count < 0 || opts.Count > MaxMessagesPerGet:
		return nil, invalid("count", "must be between 0 and %d, got %d", MaxMessagesPerGet, opts.Count)
	case opts.TimeOffset < 0:
		return nil, invalid("time offset", "must not be negative, got %d", opts.TimeOffset)
	case opts.Offset < 0:
		return nil, invalid("offset", "must not be negative, got %d", opts.Offset)
	}
	p := NewParams("messages.get")
	if opts.Out {
		p.PutBool("out", true)
	}
	if opts.Offset > 0 {
		p.PutInt("offset", opts.Offset)
	}
	if opts.Count > 0 {
		p.PutInt("count", opts.Count)
	}
	if opts.TimeOffset > 0 {
		p.PutInt64("time_offset", opts.TimeOffset)
	}
	return messageListResponse(ctx, r, p)
}

// MessagesHistoryOptions controls messages.getHistory.
type MessagesHistoryOptions struct {
	Offset         int
	Count          int
	StartMessageID int64
	// Reverse returns messages in chronological order when set.
	Reverse *bool
}

// GetHistory returns the conversation with a user or chat.
func (s MessagesService) GetHistory(ctx context.Context, peer int64, opts MessagesHistoryOptions) ([]Message, error) {
	return getMessageHistory(ctx, s, peer, opts)
}

func getMessageHistory(ctx context.Context, r Requester, peer int64, opts MessagesHistoryOptions) ([]Message, error) {
	switch {
	case peer < 0:
		return nil, invalid("uid", "must not be negative, got %d", peer)
	case opts.Offset < 0:
		return nil, invalid("offset", "must not be negative, got %d", opts.Offset)
	case opts.Count < 0 || opts.Count > MaxMessagesPerHistory:
		return nil, invalid("count", "must be between 0 and %d, got %d", MaxMessagesPerHistory, opts.Count)
	case opts.StartMessageID < 0:
		return nil, invalid("start message id", "must not be negative, got %d", opts.StartMessageID)
	}
	p := NewParams("messages.getHistory")
	p.PutInt64("uid", peer)
	if opts.Offset > 0 {
		p.PutInt("offset", opts.Offset)
	}
	if opts.Count > 0 {
		p.PutInt("count", opts.Count)
	}
	if opts.StartMessageID > 0 {
		p.PutInt64("start_mid", opts.StartMessageID)
	}
	if opts.Reverse != nil {
		p.PutBool("rev", *opts.Reverse)
	}
	return messageListResponse(ctx, r, p)
}

// MessagesDialogsOptions controls messages.getDialogs.
type MessagesDialogsOptions struct {
	UserID        int64
	ChatID        int64
	Offset        int
	Count         int
	PreviewLength int
}

// GetDialogs returns the last message of each conversation.
func (s MessagesService) GetDialogs(ctx context.Context, opts MessagesDialogsOptions) ([]Message, error) {
	return getDialogs(ctx, s, opts)
}

func getDialogs(ctx context.Context, r Requester, opts MessagesDialogsOptions) ([]Message, error) {
	switch {
	case opts.UserID < 0:
		return nil, invalid("user id", "must not be negative, got %d", opts.UserID)
	case opts.ChatID < 0:
		return nil, invalid("chat id", "must not be negative, got %d", opts.ChatID)
	case opts.Offset < 0:
		return nil, invalid("offset", "must not be negative, got %d", opts.Offset)
	case opts.Count < 0:
		return nil, invalid("count", "must not be negative, got %d", opts.Count)
	case opts.PreviewLength < 0:
		return nil, invalid("preview length", "must not be negative, got %d", opts.PreviewLength)
	}
	p := NewParams("messages.getDialogs")
	if opts.UserID > 0 {
		p.PutInt64("user_id", opts.UserID)
	}
	if opts.ChatID > 0 {
		p.PutInt64("chat_id", opts.ChatID)
	}
	if opts.Offset > 0 {
		p.PutInt("offset", opts.Offset)
	}
	if opts.Count > 0 {
		p.PutInt("count", opts.Count)
	}
	if opts.PreviewLength > 0 {
		p.PutInt("preview_length", opts.PreviewLength)
	}
	return messageListResponse(ctx, r, p)
}

// messageListResponse reads the [count, message...] shape every messages
// list endpoint returns.
func messageListResponse(ctx context.Context, r Requester, p *Params) ([]Message, error) {
	resp, err := arrayResponse(ctx, r, p)
	if err != nil {
		return nil, err
	}
	return MessagesFromJSON(resp, true), nil
}
