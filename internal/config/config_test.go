package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, PushDebounced, cfg.PushPolicy)
	assert.Equal(t, 400*time.Millisecond, cfg.DebounceWindow)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.ReplicationEnabled)
	assert.Equal(t, "eventdesk_changes", cfg.Publication)
}

func TestContextRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	ctx := WithContext(context.Background(), &cfg)
	assert.Same(t, &cfg, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}
