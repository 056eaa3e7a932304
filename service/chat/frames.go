package chat

import (
	"encoding/json"
	"fmt"
)

// Wire event names.
const (
	EventOnlineUsers = "getOnlineUsers"
	EventNewMessage  = "newMessage"
)

// Frame is the JSON envelope of every websocket text message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func EncodeFrame(event string, data any) ([]byte, error) {
	if event == "" {
		return nil, fmt.Errorf("EncodeFrame: empty event")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("EncodeFrame %s: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

func DecodeFrame(raw []byte) (*Frame, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("DecodeFrame: data is empty")
	}
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("DecodeFrame: %w", err)
	}
	if f.Event == "" {
		return nil, fmt.Errorf("DecodeFrame: missing event")
	}
	return &f, nil
}
