package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xavierca1/salespilot/internal/entity"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Deliver(ctx context.Context, n entity.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type recordingMailer struct {
	mu   sync.Mutex
	got  []entity.Notification
	fail map[string]bool
	wait time.Duration
}

func (m *recordingMailer) Deliver(ctx context.Context, n entity.Notification) error {
	if m.wait > 0 {
		time.Sleep(m.wait)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[n.LeadID] {
		return errors.New("smtp down")
	}
	m.got = append(m.got, n)
	return nil
}

type fakePublisher struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (p *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	p.exchange, p.key, p.msg = exchange, key, msg
	return p.err
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (a *fakeAck) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}
func (a *fakeAck) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

func TestProducer_Notify(t *testing.T) {
	pub := &fakePublisher{}
	n := entity.Notification{Kind: entity.NotifyQualification, LeadID: "l1", To: "a@example.com", BookingLink: "https://x/l1"}

	require.NoError(t, NewProducer(pub).Notify(context.Background(), n))

	assert.Equal(t, ExchangeName, pub.exchange)
	assert.Equal(t, RoutingKey, pub.key)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)
	assert.Equal(t, "QUALIFICATION", pub.msg.Type)

	var decoded entity.Notification
	require.NoError(t, json.Unmarshal(pub.msg.Body, &decoded))
	assert.Equal(t, n, decoded)
}

func TestProducer_NotifyPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	err := NewProducer(pub).Notify(context.Background(), entity.Notification{Kind: entity.NotifyReminder})
	assert.ErrorContains(t, err, "channel closed")
}

func delivery(t *testing.T, ack *fakeAck, body []byte) amqp.Delivery {
	t.Helper()
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestWorker_HandleAcksOnSuccess(t *testing.T) {
	n := entity.Notification{Kind: entity.NotifyRejection, LeadID: "l2", To: "b@example.com"}
	body, _ := json.Marshal(n)

	mailer := new(MockMailer)
	mailer.On("Deliver", mock.Anything, n).Return(nil)

	ack := &fakeAck{}
	NewWorker(nil, mailer, zap.NewNop()).handle(context.Background(), delivery(t, ack, body))

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
	mailer.AssertExpectations(t)
}

func TestWorker_HandleNacksToDLQ(t *testing.T) {
	mailer := new(MockMailer)
	mailer.On("Deliver", mock.Anything, mock.Anything).Return(errors.New("smtp 550"))

	ack := &fakeAck{}
	w := NewWorker(nil, mailer, zap.NewNop())
	w.handle(context.Background(), delivery(t, ack, []byte(`{"kind":"REMINDER"}`)))
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeued)

	bad := &fakeAck{}
	w.handle(context.Background(), delivery(t, bad, []byte("{not json")))
	assert.True(t, bad.nacked)
	assert.False(t, bad.requeued)
	mailer.AssertNumberOfCalls(t, "Deliver", 1)
}

type fakeConsumer struct {
	ch chan amqp.Delivery
}

func (c *fakeConsumer) ConsumeWithContext(context.Context, string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return c.ch, nil
}

func TestWorker_StartStopsWhenChannelCloses(t *testing.T) {
	mailer := &recordingMailer{}
	c := &fakeConsumer{ch: make(chan amqp.Delivery, 2)}
	body, _ := json.Marshal(entity.Notification{Kind: entity.NotifyReminder, LeadID: "l3"})
	ack := &fakeAck{}
	c.ch <- delivery(t, ack, body)
	close(c.ch)

	require.NoError(t, NewWorker(c, mailer, nil).Start(context.Background(), QueueName))
	assert.True(t, ack.acked)
	assert.Len(t, mailer.got, 1)
}

func TestDispatcher_CloseDrainsQueue(t *testing.T) {
	mailer := &recordingMailer{wait: 5 * time.Millisecond, fail: map[string]bool{"bad": true}}
	d := NewDispatcher(mailer, 2, 16, time.Second, zap.NewNop())

	for _, id := range []string{"a", "b", "bad", "c", "d"} {
		require.NoError(t, d.Notify(context.Background(), entity.Notification{Kind: entity.NotifyAcknowledgement, LeadID: id}))
	}

	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, mailer.got, 4)
	assert.ErrorIs(t, d.Notify(context.Background(), entity.Notification{}), ErrDispatcherClosed)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_DeliveryOutlivesRequestContext(t *testing.T) {
	mailer := new(MockMailer)
	mailer.On("Deliver", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), mock.Anything).Return(nil)

	d := NewDispatcher(mailer, 1, 1, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Notify(ctx, entity.Notification{Kind: entity.NotifyProposal}))
	cancel()

	require.NoError(t, d.Close(context.Background()))
	mailer.AssertExpectations(t)
}

func TestDispatcher_QueueFull(t *testing.T) {
	release := make(chan struct{})
	mailer := new(MockMailer)
	mailer.On("Deliver", mock.Anything, mock.Anything).Run(func(mock.Arguments) { <-release }).Return(nil)

	d := NewDispatcher(mailer, 1, 1, time.Second, nil)
	n := entity.Notification{Kind: entity.NotifyReminder}

	// First is picked up by the worker, second fills the buffer.
	require.NoError(t, d.Notify(context.Background(), n))
	require.Eventually(t, func() bool { return len(d.jobs) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, d.Notify(context.Background(), n))
	assert.ErrorIs(t, d.Notify(context.Background(), n), ErrQueueFull)

	close(release)
	require.NoError(t, d.Close(context.Background()))
}
