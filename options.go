package sdcard

import (
	"log"
	"time"
)

type config struct {
	logger *log.Logger
	timing Timing
	sleep  func(time.Duration)
}

func defaultConfig() config {
	return config{
		timing: DefaultTiming,
		sleep:  time.Sleep,
	}
}

// Option configures a Card.
type Option func(*config)

// WithLogger enables debug logs. A nil logger keeps the card silent.
//
// Example:
//
//	card := sdcard.New(bus, cs, sdcard.WithLogger(log.New(os.Stderr, "sdcard: ", 0)))
func WithLogger(logger *log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTiming replaces DefaultTiming.
func WithTiming(t Timing) Option {
	return func(c *config) {
		c.timing = t
	}
}

// WithSleep replaces time.Sleep for the delays between polling attempts.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *config) {
		c.sleep = sleep
	}
}
