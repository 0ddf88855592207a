package consumer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type recordingHandler struct {
	got []*Message
}

func (h *recordingHandler) Handle(_ context.Context, msg *Message) error {
	h.got = append(h.got, msg)
	return nil
}

func TestFromRecordCopiesHeaders(t *testing.T) {
	msg := FromRecord(&kgo.Record{
		Topic:     "procedure-events",
		Partition: 2,
		Offset:    17,
		Key:       []byte("p-1"),
		Value:     []byte(`{}`),
		Headers:   []kgo.RecordHeader{{Key: "event_type", Value: []byte("procedure.completed")}},
	})

	assert.Equal(t, "procedure-events", msg.Topic)
	assert.Equal(t, int64(17), msg.Offset)
	assert.Equal(t, "procedure.completed", msg.Headers["event_type"])
}

func TestRouterDispatchesByEventType(t *testing.T) {
	completed := &recordingHandler{}
	router := NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	router.Register("procedure.completed", completed)

	require.NoError(t, router.Handle(context.Background(), &Message{
		Headers: map[string]string{"event_type": "procedure.completed"},
	}))
	require.NoError(t, router.Handle(context.Background(), &Message{
		Headers: map[string]string{"event_type": "procedure.reopened"},
	}))

	assert.Len(t, completed.got, 1)
}
