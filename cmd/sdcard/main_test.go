package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

type closeCounter struct{ n int }

func (c *closeCounter) Close() error {
	c.n++
	return nil
}

func stubExit(t *testing.T) *int {
	t.Helper()
	code := -1
	exit = func(c int) { code = c }
	t.Cleanup(func() {
		exit = os.Exit
		openDevice = nil
	})
	return &code
}

func TestFatalfReleasesDevice(t *testing.T) {
	code := stubExit(t)
	dev := &closeCounter{}
	openDevice = dev

	fatalf("read failed: %v", os.ErrDeadlineExceeded)
	assert.Equal(t, 1, *code)
	assert.Equal(t, 1, dev.n)
	assert.Nil(t, openDevice)

	// already released
	fatalUsage("sector count must be positive")
	assert.Equal(t, 2, *code)
	assert.Equal(t, 1, dev.n)
}

func TestFatalUsageReleasesDevice(t *testing.T) {
	code := stubExit(t)
	dev := &closeCounter{}
	openDevice = dev

	fatalUsage("-cs is required for -bus host")
	assert.Equal(t, 2, *code)
	assert.Equal(t, 1, dev.n)
}

func TestReleaseOnce(t *testing.T) {
	stubExit(t)
	dev := &closeCounter{}
	openDevice = dev
	release()
	release()
	assert.Equal(t, 1, dev.n)
}
