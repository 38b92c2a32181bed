package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"pkt.systems/pslog"

	"pkt.systems/htx/schema"
)

var errMissingType = errors.New("event missing type field")

// channel owns the engine's stdio: serialized command writes on stdin
// and a background reader that normalizes the stdout event stream.
// stderr lines surface as error events. A malformed stdout line is
// fatal: the reader halts and the failure reaches the next Next call.
type channel struct {
	writeMu sync.Mutex
	stdin   io.WriteCloser
	closed  bool

	events chan schema.Event
	errMu  sync.Mutex
	err    error
	// halted closes when the event reader stops on a fatal error, so
	// Next reports it promptly and the stderr reader never blocks on a
	// full event buffer.
	halted   chan struct{}
	haltOnce sync.Once
	wg       sync.WaitGroup
	log      pslog.Logger
}

func newChannel(ctx context.Context, stdin io.WriteCloser, stdout, stderr io.Reader) *channel {
	c := &channel{
		stdin:  stdin,
		events: make(chan schema.Event, 256),
		halted: make(chan struct{}),
		log:    pslog.Ctx(ctx),
	}
	c.wg.Add(2)
	go c.readEvents(ctx, stdout)
	go c.readStderr(stderr)
	go func() {
		c.wg.Wait()
		close(c.events)
	}()
	return c
}

// Send marshals one command and writes it as a single line. The write
// mutex keeps concurrent callers from interleaving partial lines.
func (c *channel) Send(ctx context.Context, cmd schema.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal %s command: %w", cmd.Type, err)
	}
	payload = append(payload, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return schema.ErrChannelClosed
	}
	if _, err := c.stdin.Write(payload); err != nil {
		return fmt.Errorf("write %s command: %w", cmd.Type, err)
	}
	return nil
}

func (c *channel) readEvents(ctx context.Context, reader io.Reader) {
	defer c.wg.Done()
	stream := newJSONLStream(reader)
	for {
		event, err := stream.Next(ctx)
		if err != nil {
			var decodeErr *jsonlDecodeError
			if errors.As(err, &decodeErr) {
				preview := previewText(string(decodeErr.Line()), 200)
				c.log.Error("malformed protocol line, halting", "preview", preview, "err", err)
				c.halt(fmt.Errorf("%w: %s", schema.ErrProtocol, preview))
				return
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				c.log.Warn("event stream read failed", "err", err)
				c.halt(err)
			}
			return
		}
		c.events <- event
	}
}

func (c *channel) readStderr(reader io.Reader) {
	defer c.wg.Done()
	scanner := newLineScanner(reader)
	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}
		c.log.Warn("engine stderr", "text", previewText(text, 200))
		select {
		case c.events <- schema.Event{Type: schema.EventError, Message: text}:
		case <-c.halted:
			// The stream already failed; keep draining the pipe but stop
			// surfacing events nobody will consume.
		}
	}
	if err := scanner.Err(); err != nil {
		c.log.Warn("engine stderr read failed", "err", err)
	}
}

func (c *channel) halt(err error) {
	if err == nil {
		return
	}
	c.errMu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.errMu.Unlock()
	c.haltOnce.Do(func() { close(c.halted) })
}

func (c *channel) storedErr() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Next yields the next normalized event. Events buffered before a
// fatal halt still drain; afterwards the stored error surfaces, or
// io.EOF on clean shutdown.
func (c *channel) Next(ctx context.Context) (schema.Event, error) {
	select {
	case <-ctx.Done():
		return schema.Event{}, ctx.Err()
	case event, ok := <-c.events:
		if ok {
			return event, nil
		}
		if err := c.storedErr(); err != nil {
			return schema.Event{}, err
		}
		return schema.Event{}, io.EOF
	case <-c.halted:
		select {
		case event, ok := <-c.events:
			if ok {
				return event, nil
			}
		default:
		}
		return schema.Event{}, c.storedErr()
	}
}

// Close shuts the write side down. The engine treats stdin EOF as a
// signal to wind down; the reader goroutines finish on their own when
// the pipes close.
func (c *channel) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.stdin.Close()
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	s.Buffer(buf, 1024*1024)
	return s
}

func previewText(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max]
}
