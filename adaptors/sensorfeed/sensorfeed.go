// Package sensorfeed adapts a polled I2C sensor into a pipe producer.
// Sensors are one of the sources a pipe's producers commonly ingest from
// (alongside disk and network readers, which are external collaborators
// outside this module's scope). Feed is the sensor case, built entirely on
// the pipe package's public Producer API.
//
// The I2C interface used here (drivers.I2C) is tinygo.org/x/drivers'
// host-buildable abstraction — unlike a TinyGo-only UART helper tied to a
// "machine" import, it has no build-tag restriction and is exercised
// host-side in tests via a fake bus; sensorfeed_test.go does the same.
package sensorfeed

import (
	"context"
	"time"

	"tinygo.org/x/drivers"

	"github.com/rharrison/pipe"
)

// Feed polls a sensor register over I2C at Interval and pushes each raw
// sample as one fixed-size record into a pipe via a Producer handle.
type Feed struct {
	Bus      drivers.I2C
	Addr     uint16
	Reg      byte
	Interval time.Duration

	// MaxBackoff caps the delay Run waits between retries after consecutive
	// Tx errors. Defaults to 2s if zero.
	MaxBackoff time.Duration

	prod       *pipe.Producer
	sampleSize int
}

// New returns a Feed that reads SampleSize bytes from reg on addr every
// interval and pushes them through prod.
func New(bus drivers.I2C, addr uint16, reg byte, sampleSize int, interval time.Duration, prod *pipe.Producer) *Feed {
	return &Feed{
		Bus:        bus,
		Addr:       addr,
		Reg:        reg,
		Interval:   interval,
		prod:       prod,
		sampleSize: sampleSize,
	}
}

// Run polls until ctx is done or the producer reports a permanent failure
// (e.g. every consumer handle has been freed). Transient I2C errors are
// retried on the next tick with an increasing backoff.
func (f *Feed) Run(ctx context.Context) error {
	maxBackoff := f.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 2 * time.Second
	}
	backoff := backoffSeq(f.Interval, maxBackoff)

	sample := make([]byte, f.sampleSize)
	ticker := time.NewTicker(f.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := f.Bus.Tx(f.Addr, []byte{f.Reg}, sample); err != nil {
				if !sleep(ctx, backoff()) {
					return ctx.Err()
				}
				continue
			}
			if err := f.prod.Push(sample, 1); err != nil {
				return err
			}
		}
	}
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 10 * time.Millisecond
	}
	if max < min {
		max = min
	}
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
