package realtime

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/rohitksw/sw-alert-system/pkg/storage"
	"github.com/rohitksw/sw-alert-system/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	registry *Registry
	store    storage.Interface
	ctrl     *Controller
}

func newTestEnv(closeReplaced bool) *testEnv {
	registry := NewRegistry()
	store := memory.NewStore()
	return &testEnv{
		registry: registry,
		store:    store,
		ctrl:     NewController(registry, store, closeReplaced),
	}
}

// dial attaches a fresh piped connection to the controller, returning the
// server-side Conn and the client end of the pipe.
func (env *testEnv) dial(t *testing.T) (*Conn, net.Conn, chan struct{}) {
	t.Helper()

	server, client := net.Pipe()
	terminateCh := make(chan struct{})
	cc := env.ctrl.NewConn(server, terminateCh)
	t.Cleanup(func() {
		cc.Close()
		client.Close()
	})
	return cc, client, terminateCh
}

func register(t *testing.T, client net.Conn, deviceID, ip string) {
	t.Helper()

	msg, err := json.Marshal(clientMessage{
		Type:     messageTypeRegister,
		DeviceID: deviceID,
		IP:       ip,
	})
	require.NoError(t, err)
	require.NoError(t, wsutil.WriteClientMessage(client, ws.OpText, msg))
}

func readAck(t *testing.T, client net.Conn) registeredMessage {
	t.Helper()

	data, op, err := wsutil.ReadServerData(client)
	require.NoError(t, err)
	require.Equal(t, ws.OpText, op)

	ack := registeredMessage{}
	require.NoError(t, json.Unmarshal(data, &ack))
	return ack
}

func TestRegistrationFlow(t *testing.T) {
	env := newTestEnv(false)
	cc, client, _ := env.dial(t)

	register(t, client, "d1", "10.0.0.5")

	ack := readAck(t, client)
	assert.Equal(t, "registered", ack.Type)
	assert.Equal(t, "success", ack.Status)

	assert.Equal(t, 1, env.registry.Len())
	assert.Equal(t, "d1", cc.DeviceID())
	assert.Equal(t, "10.0.0.5", cc.Address())

	// The directory upsert is asynchronous relative to the ack.
	require.Eventually(t, func() bool {
		m, err := env.store.Devices().FindByDeviceID("d1")
		return err == nil && m.LastKnownIP == "10.0.0.5"
	}, time.Second, 10*time.Millisecond)
}

func TestMalformedMessageKeepsConnectionOpen(t *testing.T) {
	env := newTestEnv(false)
	_, client, _ := env.dial(t)

	require.NoError(t, wsutil.WriteClientMessage(client, ws.OpText, []byte("not json")))
	require.NoError(t, wsutil.WriteClientMessage(client, ws.OpText, []byte(`{"type":"shutdown"}`)))
	require.NoError(t, wsutil.WriteClientMessage(client, ws.OpText, []byte(`{"type":"register","deviceId":"","ip":""}`)))

	// The connection survived all of the above and still registers fine.
	register(t, client, "d1", "10.0.0.5")
	ack := readAck(t, client)
	assert.Equal(t, "success", ack.Status)
	assert.Equal(t, 1, env.registry.Len())
}

func TestReRegistrationUpdatesAddress(t *testing.T) {
	env := newTestEnv(false)
	cc, client, _ := env.dial(t)

	register(t, client, "d1", "10.0.0.5")
	readAck(t, client)

	register(t, client, "d1", "10.0.0.9")
	readAck(t, client)

	assert.Equal(t, 1, env.registry.Len())
	assert.Equal(t, "10.0.0.9", cc.Address())
	assert.Empty(t, env.registry.LookupByAddress("10.0.0.5"))

	require.Eventually(t, func() bool {
		m, err := env.store.Devices().FindByDeviceID("d1")
		return err == nil && m.LastKnownIP == "10.0.0.9"
	}, time.Second, 10*time.Millisecond)
}

func TestReRegistrationWithNewDeviceID(t *testing.T) {
	env := newTestEnv(false)
	cc, client, _ := env.dial(t)

	register(t, client, "d1", "10.0.0.5")
	readAck(t, client)

	register(t, client, "d2", "10.0.0.5")
	readAck(t, client)

	// The old device ID is released, the connection holds a single entry.
	assert.Equal(t, 1, env.registry.Len())
	assert.Equal(t, "d2", cc.DeviceID())
	assert.Len(t, env.registry.LookupByAddress("10.0.0.5"), 1)

	// Closing the transport leaves nothing behind.
	client.Close()
	require.Eventually(t, func() bool {
		return env.registry.Len() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestDisplacedConnectionLeftOpenByDefault(t *testing.T) {
	env := newTestEnv(false)

	old, oldClient, _ := env.dial(t)
	register(t, oldClient, "d1", "10.0.0.5")
	readAck(t, oldClient)

	_, newClient, _ := env.dial(t)
	register(t, newClient, "d1", "10.0.0.6")
	readAck(t, newClient)

	assert.Equal(t, 1, env.registry.Len())

	// Default policy: the displaced connection is dereferenced, not closed.
	select {
	case <-old.closeCh:
		t.Fatal("displaced connection was closed")
	default:
	}
}

func TestDisplacedConnectionClosedWithPolicy(t *testing.T) {
	env := newTestEnv(true)

	old, oldClient, _ := env.dial(t)
	register(t, oldClient, "d1", "10.0.0.5")
	readAck(t, oldClient)

	_, newClient, _ := env.dial(t)
	register(t, newClient, "d1", "10.0.0.6")
	readAck(t, newClient)

	require.Eventually(t, func() bool {
		select {
		case <-old.closeCh:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestPeerCloseRemovesSession(t *testing.T) {
	env := newTestEnv(false)
	_, client, terminateCh := env.dial(t)

	register(t, client, "d1", "10.0.0.5")
	readAck(t, client)
	require.Equal(t, 1, env.registry.Len())

	client.Close()

	require.Eventually(t, func() bool {
		return env.registry.Len() == 0
	}, time.Second, 10*time.Millisecond)

	select {
	case <-terminateCh:
	case <-time.After(time.Second):
		t.Fatal("terminate channel not closed")
	}
}
