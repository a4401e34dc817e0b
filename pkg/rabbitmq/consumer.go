package rabbitmq

import (
	"context"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler processes one message; a returned error is logged only.
type Handler func(topic string, message mqtt.Message) error

// IConsumer subscribes a handler to a topic until ctx is done.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler Handler)
}

// Consumer holds the client and topic for one subscription.
type Consumer struct {
	client  mqtt.Client
	handler Handler
	topic   string
	qos     byte
}

var _ IConsumer = (*Consumer)(nil)

func NewConsumer(client mqtt.Client, topic string, qos byte, handler Handler) *Consumer {
	return &Consumer{client: client, topic: topic, qos: qos, handler: handler}
}

func (c *Consumer) SetHandler(handler Handler) {
	c.handler = handler
}

// Dispatch runs the handler on one message.
func (c *Consumer) Dispatch(message mqtt.Message) {
	if c.handler == nil {
		log.Printf("mqtt: no handler set for topic %s", c.topic)
		return
	}
	if err := c.handler(c.topic, message); err != nil {
		log.Printf("mqtt: error handling message on %s: %v", c.topic, err)
	}
}

// ConsumeMessage blocks until ctx is cancelled, then unsubscribes.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	token := c.client.Subscribe(c.topic, c.qos, func(_ mqtt.Client, message mqtt.Message) {
		c.Dispatch(message)
	})
	if token.Wait() && token.Error() != nil {
		log.Printf("mqtt: subscribe to %s failed: %v", c.topic, token.Error())
		return
	}
	log.Printf("mqtt: subscribed to %s", c.topic)

	<-ctx.Done()

	c.client.Unsubscribe(c.topic).Wait()
}
