package scrape

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobreview-engine/internal/config"
	"jobreview-engine/internal/domain"
	"jobreview-engine/internal/scrape/types"
)

type fakeProducer struct {
	name  string
	delay time.Duration
	err   error
	rows  int
}

func (f fakeProducer) Name() string        { return f.name }
func (f fakeProducer) Board() domain.Board { return domain.Board(f.name) }
func (f fakeProducer) Fetch(ctx context.Context, _ types.Hint) (types.Batch, error) {
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return types.Batch{}, ctx.Err()
	}
	b := types.Batch{Producer: f.name, Board: f.Board(), Finalize: func(context.Context) error { return nil }}
	for i := 0; i < f.rows; i++ {
		b.Candidates = append(b.Candidates, domain.NewRecord(map[string]string{"title": f.name}))
	}
	return b, f.err
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	ps := []types.Producer{
		fakeProducer{name: "slow", delay: time.Second, rows: 1},
		fakeProducer{name: "broken", err: errors.New("boom"), rows: 3},
		fakeProducer{name: "ok", rows: 2},
	}
	out := FetchAll(context.Background(), ps, types.Hint{}, 50*time.Millisecond, nil)
	require.Len(t, out, 3)

	assert.Equal(t, "slow", out[0].Producer)
	assert.ErrorIs(t, out[0].Err, context.DeadlineExceeded)

	assert.Error(t, out[1].Err)
	assert.Empty(t, out[1].Batch.Candidates)
	assert.Nil(t, out[1].Batch.Finalize)

	assert.NoError(t, out[2].Err)
	assert.Len(t, out[2].Batch.Candidates, 2)
}

func TestFromConfigOrderAndToggles(t *testing.T) {
	cfg := config.Default()
	cfg.Sources.Email.Enabled = true
	cfg.Sources.Jobnet.Enabled = false

	var names []string
	for _, p := range FromConfig(cfg, nil) {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"linkedin", "jobindex", "email"}, names)
}
