package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/streettrees/internal/logger"
)

func TestStatsGate(t *testing.T) {
	var gate StatsGate

	_, ok := gate.Get()
	assert.False(t, ok)

	service := NewStatsService(oakCatalog(t), logger.Nop(), nil, 0)
	gate.Publish(service)

	got, ok := gate.Get()
	require.True(t, ok)
	assert.Same(t, service, got)
}

func TestStatsGate_ConcurrentReaders(t *testing.T) {
	var gate StatsGate
	service := NewStatsService(oakCatalog(t), logger.Nop(), nil, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if s, ok := gate.Get(); ok {
					assert.Equal(t, 8, s.CatalogSize(context.Background()))
				}
			}
		}()
	}
	gate.Publish(service)
	wg.Wait()
}
