package api

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Envelope is a successfully unwrapped API reply.
type Envelope struct {
	raw  []byte
	root gjson.Result
}

// Response returns the "response" member. It may not exist; mappers decide
// what absence means for their endpoint.
func (e *Envelope) Response() gjson.Result {
	return e.root.Get("response")
}

// Raw returns the full reply body as received.
func (e *Envelope) Raw() []byte {
	return e.raw
}

// ResponseJSON returns the raw "response" member, or null when absent.
func (e *Envelope) ResponseJSON() json.RawMessage {
	r := e.Response()
	if !r.Exists() {
		return json.RawMessage("null")
	}
	return json.RawMessage(r.Raw)
}

// parseEnvelope parses a reply body and unwraps the error member.
func parseEnvelope(body []byte) (*Envelope, error) {
	if !gjson.ValidBytes(body) {
		return nil, &ProtocolError{Reason: "malformed response"}
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, &ProtocolError{Reason: "response is not a JSON object"}
	}
	if err := checkEnvelope(root); err != nil {
		return nil, err
	}
	return &Envelope{raw: body, root: root}, nil
}

// checkEnvelope returns an *APIError when the reply carries a non-null
// "error" member. Error code 14 additionally carries the captcha challenge.
func checkEnvelope(root gjson.Result) error {
	node := root.Get("error")
	if !node.Exists() || node.Type == gjson.Null {
		return nil
	}

	// OAuth endpoints report {"error": "...", "error_description": "..."}.
	if node.Type == gjson.String {
		msg := node.String()
		if desc := root.Get("error_description").String(); desc != "" {
			msg += ": " + desc
		}
		return &APIError{Message: msg}
	}

	apiErr := &APIError{
		Code:    int(node.Get("error_code").Int()),
		Message: node.Get("error_msg").String(),
	}
	if params := node.Get("request_params"); params.IsArray() {
		apiErr.RequestParams = make(map[string]string)
		for _, p := range params.Array() {
			if key := p.Get("key").String(); key != "" {
				apiErr.RequestParams[key] = p.Get("value").String()
			}
		}
	}
	if apiErr.Code == VKErrCaptchaNeeded {
		apiErr.captcha = &Captcha{
			SID:      node.Get("captcha_sid").String(),
			ImageURL: node.Get("captcha_img").String(),
		}
	}
	return apiErr
}
