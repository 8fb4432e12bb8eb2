//go:build integration

package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehiclepush/internal/parser"
	"vehiclepush/internal/testinfra"
)

func TestRedisStore_InsertIfNew(t *testing.T) {
	client := testinfra.Redis(t)
	s := NewRedisStore(client, NewHasher("sha256"), 0, 2)
	ctx := context.Background()
	ts := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

	isNew, err := s.InsertIfNew(ctx, notification(parser.KindAlert, "V1 (Car)", "Door open", ts))
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = s.InsertIfNew(ctx, notification(parser.KindAlert, "V1 (Car)", "Door open", ts.Add(time.Hour)))
	require.NoError(t, err)
	assert.False(t, isNew)

	for _, text := range []string{"b", "c"} {
		_, err = s.InsertIfNew(ctx, notification(parser.KindInfo, "V1 (Car)", text, ts))
		require.NoError(t, err)
	}

	list, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2, "history is capped")
	assert.Equal(t, "c", list[0].Text)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRedisStore_Window(t *testing.T) {
	client := testinfra.Redis(t)
	s := NewRedisStore(client, NewHasher("md5"), time.Second, 0)
	ctx := context.Background()
	n := notification(parser.KindError, "V2 (Van)", "Charge failed", time.Now())

	isNew, err := s.InsertIfNew(ctx, n)
	require.NoError(t, err)
	assert.True(t, isNew)

	time.Sleep(2 * time.Second)

	isNew, err = s.InsertIfNew(ctx, n)
	require.NoError(t, err)
	assert.True(t, isNew)
}

func TestRedisStore_Concurrent(t *testing.T) {
	client := testinfra.Redis(t)
	s := NewRedisStore(client, NewHasher("sha256"), 0, 0)

	var (
		wg       sync.WaitGroup
		newCount atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := s.InsertIfNew(context.Background(), notification(parser.KindAlert, "V3", "Theft alarm", time.Now()))
			assert.NoError(t, err)
			if isNew {
				newCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), newCount.Load())
}
