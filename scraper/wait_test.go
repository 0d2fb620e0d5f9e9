package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pevans/presscorner/browser/browsertest"
	"github.com/stretchr/testify/assert"
)

func newWaitScraper() *Scraper {
	cfg := testConfig()
	cfg.SettleTimeout = 40 * time.Millisecond
	cfg.PollInterval = 2 * time.Millisecond
	return New(browsertest.New(nil).Session(), cfg, quietLogger())
}

// TestSettle_PollsUntilReady verifies the condition is re-checked
func TestSettle_PollsUntilReady(t *testing.T) {
	s := newWaitScraper()
	calls := 0

	err := s.settle(context.Background(), "test", func(context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

// TestSettle_TimeoutIsNotAnError verifies the page is used as it is
func TestSettle_TimeoutIsNotAnError(t *testing.T) {
	s := newWaitScraper()

	start := time.Now()
	err := s.settle(context.Background(), "test", func(context.Context) (bool, error) {
		return false, nil
	})

	assert.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "the wait is bounded")
}

// TestSettle_ConditionErrorIsReturned verifies browser failures surface
func TestSettle_ConditionErrorIsReturned(t *testing.T) {
	s := newWaitScraper()
	boom := errors.New("boom")
	calls := 0

	err := s.settle(context.Background(), "test", func(context.Context) (bool, error) {
		calls++
		return false, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "permanent errors are not retried")
}

// TestSettle_Cancelled verifies cancellation is reported
func TestSettle_Cancelled(t *testing.T) {
	s := newWaitScraper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.settle(ctx, "test", func(context.Context) (bool, error) {
		return false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}
