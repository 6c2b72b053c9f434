// Package jobs holds the scheduled background work: the nightly delinquency
// sweep over the bill ledger.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper re-derives bill statuses that aged past the delinquency window.
type Sweeper interface {
	SweepDelinquent(ctx context.Context) (int, error)
}

const sweepTimeout = 5 * time.Minute

// DelinquencySweeper runs the sweep on a cron schedule.
type DelinquencySweeper struct {
	cron     *cron.Cron
	sweeper  Sweeper
	schedule string
	logger   zerolog.Logger
}

func NewDelinquencySweeper(sweeper Sweeper, schedule string, logger zerolog.Logger) *DelinquencySweeper {
	return &DelinquencySweeper{
		cron:     cron.New(),
		sweeper:  sweeper,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the job and starts the scheduler. Returns an error when
// the schedule expression does not parse.
func (d *DelinquencySweeper) Start() error {
	if _, err := d.cron.AddFunc(d.schedule, d.run); err != nil {
		return err
	}
	d.cron.Start()
	d.logger.Info().Str("schedule", d.schedule).Msg("delinquency sweep scheduled")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (d *DelinquencySweeper) Stop() {
	<-d.cron.Stop().Done()
}

func (d *DelinquencySweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	flipped, err := d.sweeper.SweepDelinquent(ctx)
	if err != nil {
		d.logger.Error().Err(err).Msg("delinquency sweep failed")
		return
	}
	d.logger.Info().Int("flipped", flipped).Msg("delinquency sweep finished")
}
