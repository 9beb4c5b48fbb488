package bench

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgblast/internal/config"
	"pgblast/internal/script"
)

func TestGroupRequiresScripts(t *testing.T) {
	_, err := NewGroup(testConfig(config.ModePooled, 1), nil, &fakeFactory{}, NewStopper())
	assert.Error(t, err)
}

func TestGroupRunsAllJobs(t *testing.T) {
	cfg := testConfig(config.ModePooled, 10)
	cfg.Jobs = 4

	factory := &fakeFactory{}
	group, err := NewGroup(cfg, []*script.Script{script.Default(cfg.Prefix)}, factory, NewStopper())
	require.NoError(t, err)

	batch, err := group.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, os.Getpid(), batch.PID)
	require.Len(t, batch.Jobs, 4)
	assert.Equal(t, 40, batch.RecordCount())
	assert.Zero(t, batch.IncompleteJobs())
	for _, res := range batch.Jobs {
		assert.Equal(t, 10, res.Attempted)
		assert.NotEmpty(t, res.JobID)
	}
}

func TestGroupFatalJobDoesNotCancelSiblings(t *testing.T) {
	cfg := testConfig(config.ModeSingleSession, 10)
	cfg.Jobs = 3

	// The first handle handed out dies after two transactions. Whichever job
	// drew it stops early; the other two must still finish all ten.
	factory := &fakeFactory{
		handleErrs: []map[int]error{{2: fatalErr("connection reset")}},
	}
	group, err := NewGroup(cfg, []*script.Script{script.Default(cfg.Prefix)}, factory, NewStopper())
	require.NoError(t, err)

	batch, err := group.RunAll(context.Background())
	require.NoError(t, err)

	require.Len(t, batch.Jobs, 3)
	assert.Equal(t, 1, batch.IncompleteJobs())

	var incomplete, complete int
	for _, res := range batch.Jobs {
		if res.Incomplete {
			incomplete++
			assert.Equal(t, 3, res.Attempted)
			assert.Contains(t, res.FatalError, "connection reset")
		} else {
			complete++
			assert.Equal(t, 10, res.Attempted)
		}
	}
	assert.Equal(t, 1, incomplete)
	assert.Equal(t, 2, complete)
}

func TestGroupStopLatchHaltsEveryJob(t *testing.T) {
	cfg := testConfig(config.ModePooled, 10)
	cfg.Jobs = 3

	stop := NewStopper()
	stop.Stop()
	group, err := NewGroup(cfg, []*script.Script{script.Default(cfg.Prefix)}, &fakeFactory{}, stop)
	require.NoError(t, err)

	batch, err := group.RunAll(context.Background())
	require.NoError(t, err)

	assert.Zero(t, batch.RecordCount())
	assert.Equal(t, 3, batch.IncompleteJobs())
}
