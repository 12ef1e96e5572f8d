package sim

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-modem/telecom/channel"
	"github.com/cwbudde/algo-modem/telecom/receiver"
)

func quiet() receiver.Option { return receiver.WithLogger(log.New(io.Discard)) }

func TestRunCleanPoint(t *testing.T) {
	rx := receiver.DefaultConfig()
	cfg := Config{
		Bursts:  4,
		Gap:     400,
		EbN0:    []float64{12},
		Seed:    3,
		Channel: channel.Config{Gain: 0.5, Phase: 1.2},
	}
	points, err := Run(context.Background(), rx, cfg, quiet())
	require.NoError(t, err)
	require.Len(t, points, 1)

	p := points[0]
	assert.Equal(t, 4, p.Frames)
	assert.Zero(t, p.Missed)
	assert.Equal(t, 4*256, p.Bits)
	assert.Zero(t, p.Errors)
	assert.Less(t, p.Theory, 1e-6)
	assert.InDelta(t, 12, p.EstimatedEbN0, 1.5)
}

func TestRunFollowsTheory(t *testing.T) {
	rx := receiver.DefaultConfig()
	rx.PayloadBitLength = 2048
	cfg := Config{Bursts: 6, Gap: 300, EbN0: []float64{5, 7}, Seed: 9}

	points, err := Run(context.Background(), rx, cfg, quiet())
	require.NoError(t, err)
	require.Len(t, points, 2)
	for _, p := range points {
		assert.Zero(t, p.Missed, "Eb/N0 %v", p.EbN0)
		assert.LessOrEqual(t, p.BER, 3*p.Theory, "Eb/N0 %v", p.EbN0)
	}
	assert.Greater(t, points[0].Theory, points[1].Theory)
}

func TestRunRejectsInvalidSettings(t *testing.T) {
	rx := receiver.DefaultConfig()
	_, err := Run(context.Background(), rx, Config{Bursts: 0, EbN0: []float64{1}})
	assert.ErrorIs(t, err, ErrConfig)
	_, err = Run(context.Background(), rx, Config{Bursts: 1})
	assert.ErrorIs(t, err, ErrConfig)

	bad := rx
	bad.OversamplingFactor = 0
	_, err = Run(context.Background(), bad, DefaultConfig(), quiet())
	assert.ErrorIs(t, err, receiver.ErrOversampling)
}

func TestRunPRBSMode(t *testing.T) {
	rx := receiver.DefaultConfig()
	cfg := Config{Bursts: 4, Gap: 400, EbN0: []float64{12}, Seed: 5, PRBSOrder: 9}

	points, err := Run(context.Background(), rx, cfg, quiet())
	require.NoError(t, err)
	require.Len(t, points, 1)

	p := points[0]
	assert.Zero(t, p.Missed)
	assert.Zero(t, p.Errors)
	assert.True(t, p.PRBS.Locked)
	// The checker spends its first bits acquiring the register.
	assert.Greater(t, p.PRBS.Bits, int64(p.Bits-64))
	assert.Zero(t, p.PRBS.Errors)
	assert.InDelta(t, 0, p.PRBS.BER, 0)

	cfg.PRBSOrder = 1
	_, err = Run(context.Background(), rx, cfg, quiet())
	assert.ErrorIs(t, err, ErrConfig)
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	points, err := Run(ctx, receiver.DefaultConfig(), DefaultConfig(), quiet())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, points)
}

func TestNearest(t *testing.T) {
	pos := []float64{100.5, 2000.25, 4000}
	assert.Equal(t, 1, nearest(pos, 2001, 4))
	assert.Equal(t, -1, nearest(pos, 3000, 4))
	assert.Equal(t, 2, nearest(pos, 3996, 4))
}
