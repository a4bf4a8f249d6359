package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/agromarket/agromarket-backend/pkg/config"
	"github.com/agromarket/agromarket-backend/pkg/logger"
	"github.com/agromarket/agromarket-backend/pkg/outbox"
)

var errProjectIDRequired = errors.New("gcp project id is required")

// Client publishes outbox messages to Pub/Sub. With ordering on, the message key (the
// aggregate id) becomes the ordering key so one order's events arrive in commit order.
type Client struct {
	client    *pubsub.Client
	projectID string
	topic     string
	ordered   bool

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects to Pub/Sub and fails unless the domain topic exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	ps, err := pubsub.NewClient(ctx, gcp.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{
		client:     ps,
		projectID:  gcp.ProjectID,
		topic:      cfg.DomainTopic,
		ordered:    cfg.Ordered,
		publishers: make(map[string]*pubsub.Publisher),
	}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"topic": cfg.DomainTopic, "ordered": cfg.Ordered}), "pubsub client initialized")
	}
	return c, nil
}

// Publish sends msg and blocks until Pub/Sub assigns it an id. Errors that a retry cannot fix
// are returned as outbox non-retryable errors.
func (c *Client) Publish(ctx context.Context, msg outbox.Message) error {
	pub := c.publisher(msg.Topic)
	if pub == nil {
		return outbox.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %q", msg.Topic))
	}
	out := &pubsub.Message{Data: msg.Data, Attributes: msg.Attributes}
	if c.ordered {
		out.OrderingKey = msg.Key
	}
	if _, err := pub.Publish(ctx, out).Get(ctx); err != nil {
		if out.OrderingKey != "" {
			// a failed ordered publish pauses its key until resumed
			pub.ResumePublish(out.OrderingKey)
		}
		return classify(msg.Topic, err)
	}
	return nil
}

func classify(topic string, err error) error {
	err = fmt.Errorf("publishing to %s: %w", topic, err)
	switch status.Code(errors.Unwrap(err)) {
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied, codes.FailedPrecondition:
		return outbox.NewNonRetryableError(err)
	}
	return err
}

// Ping checks that the domain topic exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	name := topicResourceName(c.projectID, c.topic)
	if name == "" {
		return errors.New("pubsub domain topic is required")
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("topic %q does not exist", c.topic)
	case err != nil:
		return fmt.Errorf("checking topic %q: %w", c.topic, err)
	}
	return nil
}

// Close flushes pending publishes and releases the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for name, p := range c.publishers {
		p.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.client.Close()
}

func (c *Client) publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	name := topicResourceName(c.projectID, topic)
	if name == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[name]; ok {
		return p
	}
	p := c.client.Publisher(name)
	p.EnableMessageOrdering = c.ordered
	c.publishers[name] = p
	return p
}

// topicResourceName expands a short topic id to projects/<project>/topics/<id>. Full
// resource names pass through unchanged.
func topicResourceName(projectID, topic string) string {
	topic = strings.TrimSpace(topic)
	switch {
	case topic == "":
		return ""
	case strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/"):
		return topic
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/topics/" + topic
}
