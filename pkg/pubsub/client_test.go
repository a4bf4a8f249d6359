package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/agromarket/agromarket-backend/pkg/config"
	"github.com/agromarket/agromarket-backend/pkg/outbox"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/agro/topics/domain", topicResourceName("agro", "domain"))
	assert.Equal(t, "projects/other/topics/x", topicResourceName("agro", "projects/other/topics/x"))
	assert.Equal(t, "", topicResourceName("", "domain"))
	assert.Equal(t, "", topicResourceName("agro", "  "))
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{DomainTopic: "d"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)
}

func TestUninitializedClient(t *testing.T) {
	var c *Client
	assert.Error(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())

	err := (&Client{}).Publish(context.Background(), outbox.Message{Topic: "domain"})
	assert.True(t, outbox.IsNonRetryable(err))
}

func TestClassifyPublishErrors(t *testing.T) {
	permanent := classify("domain", status.Error(codes.PermissionDenied, "no publish role"))
	assert.True(t, outbox.IsNonRetryable(permanent))
	assert.ErrorContains(t, permanent, "publishing to domain")

	transient := classify("domain", status.Error(codes.Unavailable, "try again"))
	assert.False(t, outbox.IsNonRetryable(transient))
}
