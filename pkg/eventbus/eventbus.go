// Package eventbus connects the service to NATS JetStream through watermill.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/nats-io/nkeys"
)

// TopicMetadataKey names the message metadata entry that carries the
// destination topic when a handler publishes through the router with an
// empty publish topic.
const TopicMetadataKey = "topic"

// EventBus is the publisher and subscriber every module router uses, plus
// access to JetStream key-value buckets.
type EventBus interface {
	message.Publisher
	message.Subscriber

	// KeyValue returns the named bucket, creating it if needed.
	KeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error)

	// EnsureStreams creates or updates the configured streams.
	EnsureStreams(ctx context.Context) error
}

// StreamSpec describes a JetStream stream to provision at startup.
type StreamSpec struct {
	Name     string
	Subjects []string
	MaxAge   time.Duration
}

// Config holds connection settings for the bus.
type Config struct {
	URL      string
	NKeySeed string
	Name     string
	Streams  []StreamSpec
}

// DefaultStreams covers every topic family the service publishes or consumes.
var DefaultStreams = []StreamSpec{
	{Name: "FEED", Subjects: []string{"feed.>"}, MaxAge: 72 * time.Hour},
	{Name: "BOUT", Subjects: []string{"bout.>"}, MaxAge: 72 * time.Hour},
	{Name: "EVENT", Subjects: []string{"event.>"}, MaxAge: 72 * time.Hour},
	{Name: "LIVE", Subjects: []string{"live.>"}, MaxAge: 6 * time.Hour},
}

type natsEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	conn       *nc.Conn
	js         jetstream.JetStream
	logger     *slog.Logger
	streams    []StreamSpec
}

// NewEventBus dials NATS, initialises JetStream and builds the watermill
// publisher and subscriber on top of it.
func NewEventBus(ctx context.Context, cfg Config, logger *slog.Logger) (EventBus, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url is required")
	}
	if len(cfg.Streams) == 0 {
		cfg.Streams = DefaultStreams
	}

	natsOptions, err := connectionOptions(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := nc.Connect(cfg.URL, natsOptions...)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to connect to NATS", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	wmLogger := watermill.NewSlogLogger(logger)
	marshaler := &wmnats.NATSMarshaler{}

	jsConfig := wmnats.JetStreamConfig{
		Disabled:      false,
		AutoProvision: false,
		SubscribeOptions: []nc.SubOpt{
			nc.DeliverNew(),
			nc.AckExplicit(),
		},
	}

	publisher, err := wmnats.NewPublisher(
		wmnats.PublisherConfig{
			URL:         cfg.URL,
			Marshaler:   marshaler,
			NatsOptions: natsOptions,
			JetStream:   jsConfig,
		},
		wmLogger,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create watermill publisher: %w", err)
	}

	subscriber, err := wmnats.NewSubscriber(
		wmnats.SubscriberConfig{
			URL:               cfg.URL,
			CloseTimeout:      30 * time.Second,
			AckWaitTimeout:    30 * time.Second,
			NatsOptions:       natsOptions,
			Unmarshaler:       marshaler,
			JetStream:         jsConfig,
			SubjectCalculator: wmnats.DefaultSubjectCalculator,
		},
		wmLogger,
	)
	if err != nil {
		_ = publisher.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to create watermill subscriber: %w", err)
	}

	return &natsEventBus{
		publisher:  publisher,
		subscriber: subscriber,
		conn:       conn,
		js:         js,
		logger:     logger,
		streams:    cfg.Streams,
	}, nil
}

func connectionOptions(cfg Config) ([]nc.Option, error) {
	opts := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(time.Second),
	}
	if cfg.Name != "" {
		opts = append(opts, nc.Name(cfg.Name))
	}
	if cfg.NKeySeed != "" {
		kp, err := nkeys.FromSeed([]byte(cfg.NKeySeed))
		if err != nil {
			return nil, fmt.Errorf("failed to parse nkey seed: %w", err)
		}
		pub, err := kp.PublicKey()
		if err != nil {
			return nil, fmt.Errorf("failed to derive nkey public key: %w", err)
		}
		opts = append(opts, nc.Nkey(pub, kp.Sign))
	}
	return opts, nil
}

// Publish sends messages to topic. When topic is empty each message is
// routed to the topic stored in its metadata, which is how handlers that
// fan out to several topics publish through the router.
func (eb *natsEventBus) Publish(topic string, messages ...*message.Message) error {
	if topic != "" {
		return eb.publisher.Publish(topic, messages...)
	}

	for _, msg := range messages {
		t := msg.Metadata.Get(TopicMetadataKey)
		if t == "" {
			return fmt.Errorf("message %s has no topic metadata", msg.UUID)
		}
		if err := eb.publisher.Publish(t, msg); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", t, err)
		}
	}
	return nil
}

func (eb *natsEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return eb.subscriber.Subscribe(ctx, topic)
}

func (eb *natsEventBus) EnsureStreams(ctx context.Context) error {
	for _, s := range eb.streams {
		_, err := eb.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     s.Name,
			Subjects: s.Subjects,
			MaxAge:   s.MaxAge,
			Storage:  jetstream.FileStorage,
		})
		if err != nil {
			return fmt.Errorf("failed to ensure stream %s: %w", s.Name, err)
		}
		eb.logger.InfoContext(ctx, "Stream ready",
			slog.String("stream", s.Name),
			slog.Any("subjects", s.Subjects),
		)
	}
	return nil
}

func (eb *natsEventBus) KeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := eb.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open kv bucket %s: %w", bucket, err)
	}
	return kv, nil
}

func (eb *natsEventBus) Close() error {
	var errs []error
	if err := eb.subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("subscriber: %w", err))
	}
	if err := eb.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("publisher: %w", err))
	}
	eb.conn.Close()
	return errors.Join(errs...)
}
