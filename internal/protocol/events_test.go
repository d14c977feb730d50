package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent_RoomJoined(t *testing.T) {
	msg := &Message{
		Type: TypeRoomJoined,
		Payload: []byte(`{
			"room_id": "movie-night",
			"self_id": "carol",
			"participants": {
				"alice": {"name": "Alice", "video_enabled": true, "audio_enabled": false, "screen_sharing": false}
			}
		}`),
	}

	ev, err := DecodeEvent(msg)
	require.NoError(t, err)

	joined, ok := ev.(RoomJoined)
	require.True(t, ok)
	assert.Equal(t, "movie-night", joined.RoomID)
	assert.Equal(t, "carol", joined.SelfID)
	require.Contains(t, joined.Participants, "alice")
	assert.False(t, joined.Participants["alice"].AudioEnabled)
}

func TestDecodeEvent_RelayedOffer(t *testing.T) {
	msg := &Message{
		Type:    TypeOffer,
		Payload: []byte(`{"from_id": "alice", "offer": {"type": "offer", "sdp": "v=0"}}`),
	}

	ev, err := DecodeEvent(msg)
	require.NoError(t, err)

	offer, ok := ev.(OfferReceived)
	require.True(t, ok)
	assert.Equal(t, "alice", offer.FromID)
	assert.Equal(t, "v=0", offer.Offer.SDP)
}

func TestDecodeEvent_EmptyPayload(t *testing.T) {
	ev, err := DecodeEvent(&Message{Type: TypeUserLeft})
	require.NoError(t, err)

	_, ok := ev.(UserLeft)
	assert.True(t, ok)
}

func TestDecodeEvent_UnknownType(t *testing.T) {
	_, err := DecodeEvent(&Message{Type: "join_room"})

	var unknown *ErrUnknownEvent
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "join_room", unknown.Type)
}

func TestDecodeEvent_MalformedPayload(t *testing.T) {
	_, err := DecodeEvent(&Message{Type: TypeUserJoined, Payload: []byte(`{"user_id":`)})
	assert.Error(t, err)
}

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(TypeJoinRoom, JoinRoomPayload{RoomID: "movie-night", UserName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, TypeJoinRoom, msg.Type)
	assert.JSONEq(t, `{"room_id": "movie-night", "user_name": "Alice"}`, string(msg.Payload))

	msg, err = NewMessage(TypeStartScreenShare, nil)
	require.NoError(t, err)
	assert.Empty(t, msg.Payload)
}
