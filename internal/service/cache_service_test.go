package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/feedback-api/pkg/errors"
)

type cacheRepoMock struct {
	values  map[string]string
	deleted []string
	getErr  error
}

func (m *cacheRepoMock) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*string)) = v
	return nil
}

func (m *cacheRepoMock) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value.(string)
	return nil
}

func (m *cacheRepoMock) Delete(ctx context.Context, keys ...string) error {
	m.deleted = append(m.deleted, keys...)
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func TestCacheServiceHitMissAndMetrics(t *testing.T) {
	repo := &cacheRepoMock{}
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, 0, nil, true)
	ctx := context.Background()

	var dest string
	hit, err := svc.Get(ctx, "summary", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "summary", "payload", 0))
	hit, err = svc.Get(ctx, "summary", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "payload", dest)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("miss")))

	require.NoError(t, svc.Invalidate(ctx, "summary"))
	assert.Equal(t, []string{"summary"}, repo.deleted)
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := &cacheRepoMock{getErr: errors.New("should not be called")}
	svc := NewCacheService(repo, nil, time.Minute, nil, false)

	var dest string
	hit, err := svc.Get(context.Background(), "summary", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, svc.Set(context.Background(), "summary", "x", 0))
	assert.Nil(t, repo.values)
	assert.False(t, svc.Enabled())
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := &cacheRepoMock{getErr: errors.New("connection refused")}
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var dest string
	hit, err := svc.Get(context.Background(), "summary", &dest)
	assert.Error(t, err)
	assert.False(t, hit)
}
