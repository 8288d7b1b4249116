package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Sample is one set of features read from a device.
type Sample map[string]any

// Device is a media source owned by exactly one producer loop.
type Device interface {
	// Sample returns the next reading. io.EOF ends the recording normally.
	// It must return ctx.Err() once ctx is done, even while waiting for input.
	Sample(ctx context.Context) (Sample, error)
	Close() error
}

// Opener opens a device inside the loop that will own it.
type Opener func(ctx context.Context) (Device, error)

type line struct {
	text string
	err  error
}

// lineDevice reads the stream in its own goroutine so that a caller waiting
// on a quiet pipe can still give up when its context ends.
type lineDevice struct {
	file  *os.File
	lines chan line
	done  chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// OpenJSONLines returns an Opener for a stream of JSON objects, one per line,
// written by an external capture process into a file or named pipe.
//
// Opening a named pipe blocks until a writer connects. If ctx ends first the
// open is abandoned and the file, once it does open, is closed right away.
func OpenJSONLines(path string) Opener {
	return func(ctx context.Context) (Device, error) {
		type result struct {
			file *os.File
			err  error
		}
		opened := make(chan result, 1)
		go func() {
			f, err := os.Open(path)
			opened <- result{file: f, err: err}
		}()

		select {
		case r := <-opened:
			if r.err != nil {
				return nil, fmt.Errorf("open %s: %w", path, r.err)
			}
			return newLineDevice(r.file), nil
		case <-ctx.Done():
			go func() {
				if r := <-opened; r.file != nil {
					_ = r.file.Close()
				}
			}()
			return nil, fmt.Errorf("open %s: %w", path, ctx.Err())
		}
	}
}

func newLineDevice(f *os.File) *lineDevice {
	d := &lineDevice{
		file:  f,
		lines: make(chan line),
		done:  make(chan struct{}),
	}
	go d.scan()
	return d
}

func (d *lineDevice) scan() {
	defer close(d.lines)

	scanner := bufio.NewScanner(d.file)
	for scanner.Scan() {
		select {
		case d.lines <- line{text: scanner.Text()}:
		case <-d.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case d.lines <- line{err: err}:
		case <-d.done:
		}
	}
}

func (d *lineDevice) Sample(ctx context.Context) (Sample, error) {
	for {
		var l line
		var ok bool
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case l, ok = <-d.lines:
		}
		if !ok {
			return nil, io.EOF
		}
		if l.err != nil {
			return nil, l.err
		}

		text := strings.TrimSpace(l.text)
		if text == "" {
			continue
		}

		var s Sample
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return nil, fmt.Errorf("decode sample: %w", err)
		}
		return s, nil
	}
}

// Close releases the file, which also unblocks a read waiting on a pipe.
func (d *lineDevice) Close() error {
	d.closeOnce.Do(func() {
		close(d.done)
		d.closeErr = d.file.Close()
	})
	return d.closeErr
}
