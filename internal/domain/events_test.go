package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		data     string
		want     Event
		wantType string
	}{
		{
			name:     "app opened",
			typ:      "app:opened",
			data:     `{"appId":"snake"}`,
			want:     AppOpened{AppID: "snake"},
			wantType: "app:opened",
		},
		{
			name:     "game over keeps app prefix",
			typ:      "snake:gameOver",
			data:     `{"score":35,"highScore":40}`,
			want:     GameOver{App: "snake", Score: 35, HighScore: 40},
			wantType: "snake:gameOver",
		},
		{
			name:     "lower case game over is normalized",
			typ:      "server-shield:gameover",
			data:     `{"score":3}`,
			want:     GameOver{App: "server-shield", Score: 3},
			wantType: "server-shield:gameOver",
		},
		{
			name:     "typing finished",
			typ:      "typing:finished",
			data:     `{"wpm":31.5,"accuracy":97}`,
			want:     Finished{App: "typing", WPM: 31.5, Accuracy: 97},
			wantType: "typing:finished",
		},
		{
			name:     "form finished without payload",
			typ:      "bun:finished",
			want:     Finished{App: "bun"},
			wantType: "bun:finished",
		},
		{
			name:     "legacy mailbox request",
			typ:      "mail:requestTasks",
			want:     MailRequestData{},
			wantType: "mail:requestData",
		},
		{
			name:     "mark read",
			typ:      "mail:markRead",
			data:     `{"mailId":"welcome"}`,
			want:     MailMarkRead{MailID: "welcome"},
			wantType: "mail:markRead",
		},
		{
			name:     "state request",
			typ:      "coffee:requestState",
			want:     StateRequest{App: "coffee"},
			wantType: "coffee:requestState",
		},
		{
			name:     "download attempt",
			typ:      "cloud:download-attempt",
			data:     `{"fileName":"Notes_Reunion.txt"}`,
			want:     DownloadAttempt{App: "cloud", FileName: "Notes_Reunion.txt"},
			wantType: "cloud:download-attempt",
		},
		{
			name:     "unknown action",
			typ:      "sport:warmup",
			data:     `{}`,
			want:     Unknown{Name: "sport:warmup", Data: json.RawMessage(`{}`)},
			wantType: "sport:warmup",
		},
		{
			name:     "no namespace",
			typ:      "ping",
			want:     Unknown{Name: "ping"},
			wantType: "ping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			if tt.data != "" {
				raw = json.RawMessage(tt.data)
			}
			got, err := DecodeEvent(tt.typ, raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantType, got.Type())
		})
	}
}

func TestDecodeEvent_MalformedPayload(t *testing.T) {
	got, err := DecodeEvent("snake:gameOver", json.RawMessage(`{"score":"lots"}`))
	require.Error(t, err)
	assert.IsType(t, Unknown{}, got)
}

func TestContentSelect(t *testing.T) {
	c := Content{
		Pending: Text{Title: "p"},
		Success: Text{Title: "s"},
		Failure: Text{Title: "f"},
	}
	assert.Equal(t, "p", c.Select(TaskStatusPending).Title)
	assert.Equal(t, "s", c.Select(TaskStatusCompleted).Title)
	assert.Equal(t, "f", c.Select(TaskStatusFailed).Title)
}

func TestTaskDefinitionEvaluateDefaultsToSuccess(t *testing.T) {
	task := TaskDefinition{ID: "ask-ai", TriggerEventType: "chatbot:interaction"}
	assert.Equal(t, VerdictSuccess, task.Evaluate(Interaction{App: "chatbot"}))
}

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope("win-1", FailureModeEvent("coffee"), FailureMode{Value: true})
	require.NoError(t, err)
	assert.Equal(t, SourceID, env.Source)
	assert.Equal(t, "coffee:setFailureMode", env.Type)
	assert.JSONEq(t, `{"value":true}`, string(env.Data))
}
