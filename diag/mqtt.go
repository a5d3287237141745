package diag

import (
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kwv/octoloc/raycast"
)

// brokerSettings resolves the MQTT connection settings; env vars win over config
type brokerSettings struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

func resolveBrokerSettings(cfg raycast.MQTTConfig) brokerSettings {
	s := brokerSettings{
		Broker:   os.Getenv("MQTT_BROKER"),
		ClientID: os.Getenv("MQTT_CLIENT_ID"),
		Username: os.Getenv("MQTT_USERNAME"),
		Password: os.Getenv("MQTT_PASSWORD"),
	}
	if s.Broker == "" {
		s.Broker = cfg.Broker
	}
	if s.ClientID == "" {
		s.ClientID = cfg.ClientID
	}
	if s.ClientID == "" {
		s.ClientID = "octoloc"
	}
	if s.Username == "" {
		s.Username = cfg.Username
	}
	if s.Password == "" {
		s.Password = cfg.Password
	}
	return s
}

// NewMQTTClient builds a client for the configured broker.
// If no broker is configured, MQTT is disabled and this returns nil, nil.
func NewMQTTClient(cfg raycast.MQTTConfig, logger raycast.Logger) (mqtt.Client, error) {
	if logger == nil {
		logger = raycast.NopLogger{}
	}

	s := resolveBrokerSettings(cfg)
	if s.Broker == "" {
		logger.Infof("MQTT disabled: no broker configured")
		return nil, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.Broker)
	opts.SetClientID(s.ClientID)
	if s.Username != "" {
		opts.SetUsername(s.Username)
		opts.SetPassword(s.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Infof("MQTT connected to %s", s.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warnf("MQTT connection interrupted (%v), auto-reconnect will retry", err)
	})

	return mqtt.NewClient(opts), nil
}

// Connect connects the client, giving up after timeout
func Connect(client mqtt.Client, timeout time.Duration) error {
	if client == nil {
		return fmt.Errorf("MQTT client is nil")
	}
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("MQTT connection timeout after %v", timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connecting to MQTT broker: %w", err)
	}
	return nil
}
