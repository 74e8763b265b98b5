package xems

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStore_SetGet(t *testing.T) {
	s := NewMemoryStore(time.Minute, time.Minute)
	ctx := context.Background()

	assert.NoError(t, s.Set(ctx, "k1", []byte("v1"), time.Minute))
	v, ok, err := s.Get(ctx, "k1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), v)
}

func TestMemoryStore_Miss(t *testing.T) {
	s := NewMemoryStore(time.Minute, time.Minute)
	_, ok, err := s.Get(context.Background(), "missing")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore(time.Minute, time.Minute)
	ctx := context.Background()
	s.Set(ctx, "k1", []byte("v1"), time.Minute)
	assert.NoError(t, s.Delete(ctx, "k1"))
	_, ok, _ := s.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(time.Minute, time.Minute)
	ctx := context.Background()
	s.Set(ctx, "k1", []byte("v1"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	_, ok, _ := s.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestMemoryStore_Ping(t *testing.T) {
	s := NewMemoryStore(time.Minute, time.Minute)
	assert.NoError(t, s.Ping(context.Background()))
}
