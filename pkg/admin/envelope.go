package admin

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errMalformed = errors.New("malformed response body")

// reply is a response body after envelope detection.
type reply struct {
	payload json.RawMessage
	msg     string
	ok      bool
}

// unwrap classifies a response body. A top-level object with a numeric
// "code" is an envelope and code -1 marks failure; anything else is the
// payload itself. An empty body is success with no payload.
func unwrap(body []byte) (reply, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return reply{ok: true}, nil
	}
	if !json.Valid(body) {
		return reply{}, errMalformed
	}
	if body[0] != '{' {
		return reply{payload: body, ok: true}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return reply{}, errMalformed
	}
	rawCode, found := fields["code"]
	if !found {
		return reply{payload: body, ok: true}, nil
	}
	var code float64
	if err := json.Unmarshal(rawCode, &code); err != nil || isNull(rawCode) {
		return reply{payload: body, ok: true}, nil
	}
	var msg string
	if m, found := fields["msg"]; found {
		_ = json.Unmarshal(m, &msg)
	}
	return reply{payload: fields["data"], msg: msg, ok: code != -1}, nil
}
