package publish

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rohitksw/sw-alert-system/pkg/alert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMsg struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu        sync.Mutex
	published []fakeMsg
	failAfter int // fail once this many messages were accepted, -1 = never
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{failAfter: -1}
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAfter >= 0 && len(f.published) >= f.failAfter {
		return errors.New("nats: connection closed")
	}

	f.published = append(f.published, fakeMsg{subject: subject, data: data})
	return nil
}

func (f *fakePublisher) messages() []fakeMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeMsg(nil), f.published...)
}

func TestPublishAlertExpandsTargets(t *testing.T) {
	pub := newFakePublisher()
	g := NewGateway(pub, "swalert.alerts.v1")

	n, err := g.PublishAlert([]string{"10.0.0.5", "10.0.0.6"}, "Evacuation", "evac now")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	msgs := pub.messages()
	require.Len(t, msgs, 2)

	targets := make([]string, 0, 2)
	for _, m := range msgs {
		assert.Equal(t, "swalert.alerts.v1", m.subject)

		env := alert.Envelope{}
		require.NoError(t, json.Unmarshal(m.data, &env))
		assert.Equal(t, alert.TypeAlert, env.Payload.Type)
		assert.Equal(t, "Evacuation", env.Payload.Title)
		assert.Equal(t, "evac now", env.Payload.Message)
		assert.False(t, env.Payload.Timestamp.IsZero())
		targets = append(targets, env.TargetAddress)
	}
	assert.ElementsMatch(t, []string{"10.0.0.5", "10.0.0.6"}, targets)
}

func TestPublishAlertDefaultsTitle(t *testing.T) {
	pub := newFakePublisher()
	g := NewGateway(pub, "swalert.alerts.v1")

	_, err := g.PublishAlert([]string{"10.0.0.5"}, "", "evac now")
	require.NoError(t, err)

	env := alert.Envelope{}
	require.NoError(t, json.Unmarshal(pub.messages()[0].data, &env))
	assert.Equal(t, "Alert", env.Payload.Title)
}

func TestPublishAlertSkipsEmptyTargets(t *testing.T) {
	pub := newFakePublisher()
	g := NewGateway(pub, "swalert.alerts.v1")

	n, err := g.PublishAlert([]string{"", "10.0.0.5"}, "t", "m")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, pub.messages(), 1)
}

func TestPublishAlertValidation(t *testing.T) {
	pub := newFakePublisher()
	g := NewGateway(pub, "swalert.alerts.v1")

	n, err := g.PublishAlert(nil, "t", "m")
	assert.Equal(t, 0, n)
	require.Error(t, err)
	require.True(t, IsValidation(err))
	assert.Equal(t, []string{"ips"}, err.(*ValidationError).Missing)
	assert.Empty(t, pub.messages())

	n, err = g.PublishAlert([]string{"10.0.0.5"}, "t", "")
	assert.Equal(t, 0, n)
	require.True(t, IsValidation(err))
	assert.Equal(t, []string{"message"}, err.(*ValidationError).Missing)

	_, err = g.PublishAlert(nil, "t", "")
	require.True(t, IsValidation(err))
	assert.ElementsMatch(t, []string{"ips", "message"}, err.(*ValidationError).Missing)
}

func TestPublishAlertPartialBatchOnBusFailure(t *testing.T) {
	pub := newFakePublisher()
	pub.failAfter = 1
	g := NewGateway(pub, "swalert.alerts.v1")

	n, err := g.PublishAlert([]string{"10.0.0.5", "10.0.0.6", "10.0.0.7"}, "t", "m")
	require.Error(t, err)
	assert.False(t, IsValidation(err))

	// The envelope published before the failure stays published.
	assert.Equal(t, 1, n)
	assert.Len(t, pub.messages(), 1)
}
