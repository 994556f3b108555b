package tts

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// FrameStatus marks the position of a frame in the streamed audio
type FrameStatus int

const (
	FrameFirst    FrameStatus = 0
	FrameContinue FrameStatus = 1
	FrameLast     FrameStatus = 2
)

func (s FrameStatus) String() string {
	switch s {
	case FrameFirst:
		return "first"
	case FrameContinue:
		return "continue"
	case FrameLast:
		return "last"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// CommonParams is the "common" section of the request
type CommonParams struct {
	AppID string `json:"app_id"`
}

// RequestData is the "data" section of the request. Status is always
// FrameLast: the whole text goes out in one frame.
type RequestData struct {
	Status FrameStatus `json:"status"`
	Text   string      `json:"text"` // base64 encoded
}

// OutboundMessage is the single request sent on a session
type OutboundMessage struct {
	Common   CommonParams   `json:"common"`
	Business BusinessParams `json:"business"`
	Data     RequestData    `json:"data"`
}

// NewOutboundMessage builds the request for text
func NewOutboundMessage(creds Credentials, business BusinessParams, text string) OutboundMessage {
	return OutboundMessage{
		Common:   CommonParams{AppID: creds.AppID},
		Business: business,
		Data: RequestData{
			Status: FrameLast,
			Text:   base64.StdEncoding.EncodeToString([]byte(text)),
		},
	}
}

// FragmentData carries the audio of one inbound frame
type FragmentData struct {
	Audio  string      `json:"audio"` // base64 encoded
	Status FrameStatus `json:"status"`
	Ced    string      `json:"ced,omitempty"` // synthesis progress
}

// InboundFragment is one response frame from the service
type InboundFragment struct {
	Code    int           `json:"code"`
	Message string        `json:"message,omitempty"`
	SID     string        `json:"sid"`
	Data    *FragmentData `json:"data"`
}

// IsLast reports whether this fragment ends the stream
func (f *InboundFragment) IsLast() bool {
	return f.Data != nil && f.Data.Status == FrameLast
}

// ProtocolError is a fragment the service flagged with a non-zero code
type ProtocolError struct {
	Code    int
	Message string
	SID     string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("sid %s call error: %s (code %d)", e.SID, e.Message, e.Code)
}

// MalformedMessageError is an inbound payload that does not parse as a fragment
type MalformedMessageError struct {
	Raw []byte
	Err error
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed message: %v", e.Err)
}

func (e *MalformedMessageError) Unwrap() error { return e.Err }

var errMissingData = errors.New("missing data section")

// ParseFragment decodes one inbound frame
func ParseFragment(raw []byte) (*InboundFragment, error) {
	var f InboundFragment
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, &MalformedMessageError{Raw: raw, Err: err}
	}

	// Error frames may legitimately come without audio
	if f.Data == nil {
		if f.Code != 0 {
			return &f, nil
		}
		return nil, &MalformedMessageError{Raw: raw, Err: errMissingData}
	}

	return &f, nil
}
