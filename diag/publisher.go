package diag

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kwv/octoloc/raycast"
)

// CloudMessage is the JSON payload published for a virtual cloud
type CloudMessage struct {
	Frame     string       `json:"frame"`
	Particle  int          `json:"particle"`
	Width     int          `json:"width"`
	Points    [][3]float64 `json:"points"`
	Timestamp int64        `json:"timestamp"`
}

// NewCloudMessage flattens a cloud into its wire form
func NewCloudMessage(cloud *raycast.VirtualCloud, now time.Time) CloudMessage {
	msg := CloudMessage{
		Frame:     raycast.MapFrame,
		Particle:  -1,
		Points:    make([][3]float64, 0, cloud.Len()),
		Timestamp: now.Unix(),
	}
	if cloud == nil {
		return msg
	}
	if cloud.Frame != "" {
		msg.Frame = cloud.Frame
	}
	msg.Particle = cloud.Particle
	for _, p := range cloud.Points {
		msg.Points = append(msg.Points, [3]float64{p.X, p.Y, p.Z})
	}
	msg.Width = len(msg.Points)
	return msg
}

const publishTimeout = 2 * time.Second

// Publisher publishes virtual clouds to MQTT. It implements raycast.CloudSink.
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	last          *CloudMessage
	mu            sync.RWMutex
}

var _ raycast.CloudSink = (*Publisher)(nil)

// NewPublisher creates a virtual cloud publisher.
// If client is nil, publishing is disabled (for testing)
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if env := os.Getenv("MQTT_PUBLISH_PREFIX"); env != "" {
		prefix = env
	}
	if prefix == "" {
		prefix = "octoloc"
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,    // QoS 0, clouds are superseded every update
		retain:        true, // Retain for latest cloud
	}
}

// Topic returns the topic clouds are published to
func (p *Publisher) Topic() string {
	return fmt.Sprintf("%s/virtual_cloud", p.publishPrefix)
}

// PublishVirtualCloud publishes the cloud to {prefix}/virtual_cloud
func (p *Publisher) PublishVirtualCloud(cloud *raycast.VirtualCloud) error {
	msg := NewCloudMessage(cloud, time.Now())

	p.mu.Lock()
	p.last = &msg
	p.mu.Unlock()

	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling virtual cloud: %w", err)
	}

	topic := p.Topic()
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: no acknowledgement after %v", topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}

	return nil
}

// lastCloud returns the most recent cloud handed to the publisher
func (p *Publisher) lastCloud() (CloudMessage, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return CloudMessage{}, false
	}
	return *p.last, true
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
