package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClient_PingCancelledContext(t *testing.T) {
	c := New("127.0.0.1:1", "", 0)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, c.Ping(ctx))
}
