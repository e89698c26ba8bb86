package broker

import (
	"context"
	"encoding/json"

	extErrors "github.com/pkg/errors"
	"github.com/streadway/amqp"
)

var _ Publisher = &AMQPBroker{}
var _ Subscriber = &AMQPBroker{}

const eventsExchange string = "treinix_events"

// AMQPBroker publishes domain events via RabbitMQ, routed by centro id
type AMQPBroker struct {
	connection *amqp.Connection
	channel    *amqp.Channel
}

// NewAMQPBroker returns a domain event broker over RabbitMQ
func NewAMQPBroker(amqpURI string) (*AMQPBroker, error) {
	amqpConn, err := amqp.Dial(amqpURI)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot connect to Message Broker")
	}
	amqpChan, err := amqpConn.Channel()
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot create broker channel")
	}
	broker := &AMQPBroker{
		connection: amqpConn,
		channel:    amqpChan,
	}
	if err := broker.setupEventsExchange(); err != nil {
		return nil, extErrors.Wrap(err, "Cannot declare exchange for domain events")
	}

	return broker, nil
}

func (a *AMQPBroker) setupEventsExchange() error {
	return a.channel.ExchangeDeclare(
		eventsExchange, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
}

// Close will close the channel and connection to release resources
func (a *AMQPBroker) Close() {
	a.channel.Close()
	a.connection.Close()
}

// Publish will deliver the event to every consumer bound to the event's centro
func (a *AMQPBroker) Publish(e Event) error {
	body, err := json.Marshal(&e)
	if err != nil {
		return extErrors.Wrap(err, "Cannot encode event into bytes")
	}
	if err := a.channel.Publish(
		eventsExchange,
		e.CentroID,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		return extErrors.Wrap(err, "Cannot publish domain event")
	}
	return nil
}

// Receive returns a channel of events concerning the given centro
func (a *AMQPBroker) Receive(ctx context.Context, centroID string) (<-chan Event, error) {
	name := "events_" + centroID
	if _, err := a.channel.QueueDeclare(
		name,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return nil, extErrors.Wrap(err, "Cannot setup queue")
	}
	if err := a.channel.QueueBind(
		name,
		centroID,
		eventsExchange,
		false,
		nil,
	); err != nil {
		return nil, extErrors.Wrap(err, "Cannot bind queue")
	}
	msgChan, err := a.channel.Consume(
		name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot setup consumer")
	}
	eChan := make(chan Event)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d := <-msgChan:
				var e Event
				if err := json.Unmarshal(d.Body, &e); err != nil {
					d.Nack(false, false)
					continue
				}
				eChan <- e
				d.Ack(false)
			}
		}
	}()
	return eChan, nil
}
