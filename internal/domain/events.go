package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SourceID tags every frame exchanged between the host and its embedded apps.
const SourceID = "ndi-app"

const (
	EventAppOpened        = "app:opened"
	EventMailRequestData  = "mail:requestData"
	EventMailRequestTasks = "mail:requestTasks"
	EventMailMarkRead     = "mail:markRead"
	EventMailUpdateData   = "mail:updateData"

	ActionGameOver        = "gameOver"
	ActionFinished        = "finished"
	ActionInteraction     = "interaction"
	ActionWaterShortage   = "water-shortage"
	ActionDownloadAttempt = "download-attempt"
	ActionVictory         = "victory"
	ActionRequestState    = "requestState"
	ActionSetFailureMode  = "setFailureMode"
)

// Envelope is one frame on the event transport.
type Envelope struct {
	Source string          `json:"source"`
	Handle string          `json:"handle,omitempty"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Event is a decoded transport frame. Type returns the wire name the
// catalog triggers match against.
type Event interface {
	Type() string
}

type AppOpened struct {
	AppID string `json:"appId"`
}

func (AppOpened) Type() string { return EventAppOpened }

type GameOver struct {
	App       string `json:"-"`
	Score     int    `json:"score"`
	HighScore int    `json:"highScore"`
}

func (e GameOver) Type() string { return e.App + ":" + ActionGameOver }

// Finished covers typing tests, document games and forms; each app fills
// the fields it knows about.
type Finished struct {
	App      string  `json:"-"`
	WPM      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`
	Success  bool    `json:"success"`
	Chars    int     `json:"chars"`
	Total    int     `json:"total"`
}

func (e Finished) Type() string { return e.App + ":" + ActionFinished }

type Interaction struct {
	App      string `json:"-"`
	Question string `json:"question"`
}

func (e Interaction) Type() string { return e.App + ":" + ActionInteraction }

type WaterShortage struct {
	App string `json:"-"`
}

func (e WaterShortage) Type() string { return e.App + ":" + ActionWaterShortage }

type DownloadAttempt struct {
	App      string `json:"-"`
	FileName string `json:"fileName"`
}

func (e DownloadAttempt) Type() string { return e.App + ":" + ActionDownloadAttempt }

type Victory struct {
	App   string `json:"-"`
	Score int    `json:"score"`
}

func (e Victory) Type() string { return e.App + ":" + ActionVictory }

type MailRequestData struct{}

func (MailRequestData) Type() string { return EventMailRequestData }

type MailMarkRead struct {
	MailID string `json:"mailId"`
}

func (MailMarkRead) Type() string { return EventMailMarkRead }

// StateRequest asks the host to push the app's failure-mode flag.
type StateRequest struct {
	App string `json:"-"`
}

func (e StateRequest) Type() string { return e.App + ":" + ActionRequestState }

// Unknown carries frames no variant recognizes. The engine ignores them.
type Unknown struct {
	Name string
	Data json.RawMessage
}

func (e Unknown) Type() string { return e.Name }

// DecodeEvent maps a wire frame to its typed variant. A malformed payload of a
// known type yields Unknown together with the decode error.
func DecodeEvent(eventType string, data json.RawMessage) (Event, error) {
	unknown := Unknown{Name: eventType, Data: data}

	switch eventType {
	case EventAppOpened:
		var ev AppOpened
		if err := decodePayload(data, &ev); err != nil {
			return unknown, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return ev, nil
	case EventMailRequestData, EventMailRequestTasks:
		return MailRequestData{}, nil
	case EventMailMarkRead:
		var ev MailMarkRead
		if err := decodePayload(data, &ev); err != nil {
			return unknown, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return ev, nil
	}

	app, action, ok := strings.Cut(eventType, ":")
	if !ok || app == "" {
		return unknown, nil
	}

	var (
		ev  Event
		err error
	)
	switch strings.ToLower(action) {
	case strings.ToLower(ActionGameOver):
		v := GameOver{App: app}
		err = decodePayload(data, &v)
		ev = v
	case ActionFinished:
		v := Finished{App: app}
		err = decodePayload(data, &v)
		ev = v
	case ActionInteraction:
		v := Interaction{App: app}
		err = decodePayload(data, &v)
		ev = v
	case ActionWaterShortage:
		ev = WaterShortage{App: app}
	case ActionDownloadAttempt:
		v := DownloadAttempt{App: app}
		err = decodePayload(data, &v)
		ev = v
	case ActionVictory:
		v := Victory{App: app}
		err = decodePayload(data, &v)
		ev = v
	case strings.ToLower(ActionRequestState):
		ev = StateRequest{App: app}
	default:
		return unknown, nil
	}
	if err != nil {
		return unknown, fmt.Errorf("decode %s: %w", eventType, err)
	}
	return ev, nil
}

func decodePayload(data json.RawMessage, dest any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// NewEnvelope builds a host frame for a push to a child.
func NewEnvelope(handle, eventType string, payload any) (Envelope, error) {
	env := Envelope{Source: SourceID, Handle: handle, Type: eventType}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	env.Data = data
	return env, nil
}

// FailureModeEvent is the push type toggling an app's failure branch.
func FailureModeEvent(appID string) string {
	return appID + ":" + ActionSetFailureMode
}
