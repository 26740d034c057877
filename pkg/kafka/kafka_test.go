package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	Keywords []string `json:"keywords"`
}

func TestDecodeJSON(t *testing.T) {
	req, err := DecodeJSON[request]([]byte(`{"keywords":["pcr"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"pcr"}, req.Keywords)

	_, err = DecodeJSON[request]([]byte(`{not json`))
	assert.ErrorIs(t, err, ErrPoison)
}

func TestEncodeCarriesRequestID(t *testing.T) {
	msg, err := encode(Event{Key: "k", Value: request{Keywords: []string{"rt"}}, RequestID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, []byte("k"), msg.Key)
	assert.JSONEq(t, `{"keywords":["rt"]}`, string(msg.Value))

	got := toMessage(msg)
	assert.Equal(t, "abc", got.RequestID)
}

func TestEncodeWithoutRequestID(t *testing.T) {
	msg, err := encode(Event{Key: "k", Value: 1})
	require.NoError(t, err)
	assert.Empty(t, msg.Headers)
	assert.Empty(t, toMessage(kafka.Message{Value: msg.Value}).RequestID)
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := encode(Event{Key: "k", Value: make(chan int)})
	assert.Error(t, err)
}
