package rabbitmq

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher publishes payloads on arbitrary topics.
type IPublisher interface {
	PublishTo(topic string, qos byte, payload []byte) error
	Close()
}

// Publisher wraps a shared MQTT client.
type Publisher struct {
	client mqtt.Client
}

var _ IPublisher = (*Publisher)(nil)

func NewPublisher(client mqtt.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishTo publishes and waits for the broker acknowledgement (qos>0).
func (p *Publisher) PublishTo(topic string, qos byte, payload []byte) error {
	token := p.client.Publish(topic, qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Close() {
	CloseRabbitMQConn(p.client)
}
