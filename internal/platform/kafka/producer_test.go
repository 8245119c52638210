package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerRequiresBrokersAndTopic(t *testing.T) {
	_, err := NewProducer(nil, "registry-events")
	assert.ErrorContains(t, err, "broker")

	_, err = NewProducer([]string{"localhost:9092"}, "")
	assert.ErrorContains(t, err, "topic")
}

func TestNewProducerDoesNotDial(t *testing.T) {
	p, err := NewProducer([]string{"127.0.0.1:1"}, "registry-events")
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, "registry-events", p.Topic())
}
