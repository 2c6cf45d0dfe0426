package queue

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAcknowledger struct {
	acks    []uint64
	nacks   []uint64
	requeue bool
}

func (a *recordingAcknowledger) Ack(tag uint64, _ bool) error {
	a.acks = append(a.acks, tag)
	return nil
}

func (a *recordingAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	a.nacks = append(a.nacks, tag)
	a.requeue = requeue
	return nil
}

func (a *recordingAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestToMessage(t *testing.T) {
	tests := []struct {
		name      string
		settle    func(Message) error
		wantAcks  []uint64
		wantNacks []uint64
	}{
		{name: "ack", settle: Message.Ack, wantAcks: []uint64{7}},
		{name: "requeue", settle: Message.Requeue, wantNacks: []uint64{7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &recordingAcknowledger{}
			msg := toMessage(amqp.Delivery{
				Acknowledger: ack,
				DeliveryTag:  7,
				MessageId:    "evt-1",
				Body:         []byte(`{"id":"evt-1"}`),
			})

			assert.Equal(t, "evt-1", msg.MessageID)
			assert.JSONEq(t, `{"id":"evt-1"}`, string(msg.Body))
			require.NoError(t, tt.settle(msg))
			assert.Equal(t, tt.wantAcks, ack.acks)
			assert.Equal(t, tt.wantNacks, ack.nacks)
			assert.Equal(t, tt.wantNacks != nil, ack.requeue)
		})
	}
}
