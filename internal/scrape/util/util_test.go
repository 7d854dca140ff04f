package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostKey(t *testing.T) {
	assert.Equal(t, "jobindex.dk", hostKey("WWW.Jobindex.dk"))
	assert.Equal(t, "jobnet.dk", hostKey("jobnet.dk:443"))
	assert.Equal(t, "[::1]", hostKey("[::1]"))
}

func TestHostLimiterIgnoresWWW(t *testing.T) {
	hl := NewHostLimiter(1000, 1)
	assert.Same(t, hl.forHost("www.jobnet.dk"), hl.forHost("jobnet.dk"))
	assert.NotSame(t, hl.forHost("jobnet.dk"), hl.forHost("jobindex.dk"))
}

func TestHostLimiterSlowOnlyLowers(t *testing.T) {
	hl := NewHostLimiter(2, 1).Slow("www.linkedin.com", 0.5).Slow("jobnet.dk", 10)
	assert.InDelta(t, 0.5, float64(hl.forHost("linkedin.com").Limit()), 1e-9)
	assert.InDelta(t, 2, float64(hl.forHost("jobnet.dk").Limit()), 1e-9)
}

func TestWaitURL(t *testing.T) {
	var nilLimiter *HostLimiter
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, nilLimiter.WaitURL(ctx, "https://jobnet.dk"))
	cancel()
	assert.ErrorIs(t, nilLimiter.WaitURL(ctx, "https://jobnet.dk"), context.Canceled)

	hl := NewHostLimiter(0.001, 1)
	require.NoError(t, hl.WaitURL(context.Background(), "https://jobnet.dk/a"))
	short, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	assert.Error(t, hl.WaitURL(short, "https://www.jobnet.dk/b"))
}

func TestCleanAndSlug(t *testing.T) {
	assert.Equal(t, "senior-go-udvikler", Slug("  Senior Go  Udvikler"))
	n, ok := LeadingInt("  37 applicants")
	assert.True(t, ok)
	assert.Equal(t, 37, n)
	_, ok = LeadingInt("over")
	assert.False(t, ok)
}
