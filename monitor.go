package lufsmeter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/farcloser/lufsmeter/internal/engine"
)

// Monitor meters a live source. The source delivers blocks on its own goroutine while
// the engine is polled on two wall-clock tickers, each poll being handed to sink.
// It returns when the source ends or ctx is done. Cancellation is not an error.
func Monitor(ctx context.Context, src Source, opts Options, sink func(Update)) (*Result, error) {
	applyDefaults(&opts)

	if rate := src.SampleRate(); rate > 0 {
		opts.Engine.SampleRate = rate
	}

	eng, err := engine.New(opts.Engine)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	eng.Start()
	defer eng.Stop()

	slog.Debug("lufsmeter.Monitor", "stage", "start", "sample rate", opts.Engine.SampleRate)

	group.Go(func() error {
		// The end of the input stops the pollers too.
		defer cancel()

		return src.Stream(groupCtx, eng.Ingest)
	})

	track := newTracker(eng, opts.Timeline)
	start := time.Now()

	momentary := time.NewTicker(opts.MomentaryInterval)
	defer momentary.Stop()

	shortTerm := time.NewTicker(opts.ShortTermInterval)
	defer shortTerm.Stop()

	emit := func(which Measurement) {
		update := track.poll(eng, time.Since(start), which)
		if sink != nil {
			sink(update)
		}
	}

poll:
	for {
		select {
		case <-groupCtx.Done():
			break poll
		case <-momentary.C:
			emit(Momentary)
		case <-shortTerm.C:
			emit(ShortTerm)
		}
	}

	err = group.Wait()

	emit(Momentary)
	emit(ShortTerm)

	slog.Debug("lufsmeter.Monitor", "stage", "stop", "frames", eng.Frames(), "error", err)

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	return track.finish(eng), nil
}
