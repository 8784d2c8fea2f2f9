package kafka

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(w)

	err := p.Publish(context.Background(), "tracking.updated", []byte("RB1"), []byte(`{"status":"Delivered"}`))
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	require.Equal(t, "tracking.updated", w.msgs[0].Topic)
	require.Equal(t, []byte("RB1"), w.msgs[0].Key)
	require.Equal(t, []byte(`{"status":"Delivered"}`), w.msgs[0].Value)
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	p := newProducerWithWriter(w)

	err := p.Publish(context.Background(), "tracking.updated", nil, []byte("{}"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "kafka publish")
}
