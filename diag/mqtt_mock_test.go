package diag

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mockToken implements mqtt.Token for testing
type mockToken struct {
	err     error
	pending bool
}

func (t *mockToken) Wait() bool                     { return !t.pending }
func (t *mockToken) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *mockToken) Error() error                   { return t.err }

func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type publishedMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// mockClient implements mqtt.Client for testing
type mockClient struct {
	mu           sync.Mutex
	connected    bool
	connectError error
	publishError error
	publishStall bool
	published    []publishedMessage
}

func newMockClient(connected bool) *mockClient {
	return &mockClient{connected: connected}
}

func (c *mockClient) messages() []publishedMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]publishedMessage, len(c.published))
	copy(out, c.published)
	return out
}

func (c *mockClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *mockClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *mockClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectError == nil {
		c.connected = true
	}
	return &mockToken{err: c.connectError}
}

func (c *mockClient) Disconnect(uint) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return &mockToken{err: mqtt.ErrNotConnected}
	}
	if c.publishError != nil {
		return &mockToken{err: c.publishError}
	}
	if c.publishStall {
		return &mockToken{pending: true}
	}

	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	}
	c.published = append(c.published, publishedMessage{Topic: topic, Payload: data, QoS: qos, Retain: retained})
	return &mockToken{}
}

func (c *mockClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token {
	return &mockToken{}
}

func (c *mockClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return &mockToken{}
}

func (c *mockClient) Unsubscribe(...string) mqtt.Token { return &mockToken{} }

func (c *mockClient) AddRoute(string, mqtt.MessageHandler) {}

func (c *mockClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}
