package bus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nft-curator/internal/domain"
	"nft-curator/internal/usecase"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject: subject, data: data})
	return nil
}

type echoHandler struct {
	got []domain.Inbound
}

func (h *echoHandler) Handle(ctx context.Context, in domain.Inbound, out usecase.Replier) error {
	h.got = append(h.got, in)
	if err := out.Acknowledge(ctx, in.Sender, domain.Acknowledgement{AcknowledgedMsgID: in.Message.MsgID}); err != nil {
		return err
	}
	return out.Send(ctx, in.Sender, domain.Envelope{
		MsgID:   "reply-1",
		Content: []domain.Content{{Type: domain.ContentText, Text: "echo: " + in.Message.Text()}},
	})
}

func TestDispatch(t *testing.T) {
	pub := &fakePublisher{}
	h := &echoHandler{}
	raw := []byte(`{"sender":"agent1q","message":{"msg_id":"m1","timestamp":"2026-03-01T09:00:00Z","content":[{"type":"text","text":"search"}]}}`)

	require.NoError(t, dispatch(context.Background(), raw, h, NewReplier(pub, "curator.outbox")))

	require.Len(t, h.got, 1)
	require.Equal(t, "agent1q", h.got[0].Sender)
	require.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), h.got[0].Message.Timestamp)

	require.Len(t, pub.msgs, 2)
	for _, m := range pub.msgs {
		require.Equal(t, "curator.outbox", m.subject)
	}

	var ack Outbound
	require.NoError(t, json.Unmarshal(pub.msgs[0].data, &ack))
	require.Equal(t, KindAck, ack.Kind)
	require.Equal(t, "agent1q", ack.Recipient)
	require.Equal(t, "m1", ack.Ack.AcknowledgedMsgID)
	require.Nil(t, ack.Message)

	var reply Outbound
	require.NoError(t, json.Unmarshal(pub.msgs[1].data, &reply))
	require.Equal(t, KindMessage, reply.Kind)
	require.Equal(t, "echo: search", reply.Message.Text())
	require.Nil(t, reply.Ack)
}

func TestDispatch_BadPayload(t *testing.T) {
	h := &echoHandler{}
	err := dispatch(context.Background(), []byte(`nope`), h, NewReplier(&fakePublisher{}, "out"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode inbound")
	require.Empty(t, h.got)
}

func TestReplier_PublishError(t *testing.T) {
	boom := errors.New("connection closed")
	r := NewReplier(&fakePublisher{err: boom}, "out")

	err := r.Send(context.Background(), "agent1q", domain.Envelope{MsgID: "x"})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "publish message to out")
}

func TestServe_Validation(t *testing.T) {
	c := &Client{}
	require.Error(t, c.Serve(context.Background(), "in", "out", nil))
	require.Error(t, c.Serve(context.Background(), "", "out", &echoHandler{}))
	require.False(t, c.Connected())
}
