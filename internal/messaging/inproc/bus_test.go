package inproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndi_desktop/internal/domain"
)

func TestSendToRegisteredHandle(t *testing.T) {
	bus := New(4)
	ch := bus.Register("win-1")
	assert.True(t, bus.Registered("win-1"))

	require.NoError(t, bus.Send("win-1", "coffee:setFailureMode", domain.FailureMode{Value: true}))

	env := <-ch
	assert.Equal(t, domain.SourceID, env.Source)
	assert.Equal(t, "coffee:setFailureMode", env.Type)
	assert.JSONEq(t, `{"value":true}`, string(env.Data))
}

func TestSendErrors(t *testing.T) {
	bus := New(1)
	require.ErrorIs(t, bus.Send("ghost", "mail:updateData", nil), ErrHandleNotRegistered)

	bus.Register("win-1")
	require.NoError(t, bus.Send("win-1", "a", nil))
	require.ErrorIs(t, bus.Send("win-1", "b", nil), ErrQueueFull)
}

func TestUnregisterClosesQueue(t *testing.T) {
	bus := New(2)
	ch := bus.Register("win-1")
	bus.Unregister("win-1")
	bus.Unregister("win-1")

	_, ok := <-ch
	assert.False(t, ok)
	assert.False(t, bus.Registered("win-1"))
}

func TestEmitPreservesOrder(t *testing.T) {
	bus := New(8)
	for _, typ := range []string{"app:opened", "snake:gameOver", "mail:requestData"} {
		require.NoError(t, bus.Emit(domain.Envelope{Source: domain.SourceID, Type: typ}))
	}
	require.NoError(t, bus.Emit(domain.Envelope{Source: "somebody-else", Type: "ignored"}))

	var got []string
	for range 3 {
		got = append(got, (<-bus.Inbox()).Type)
	}
	assert.Equal(t, []string{"app:opened", "snake:gameOver", "mail:requestData"}, got)
	assert.Empty(t, bus.Inbox())
}
