package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultWriteInterval is how often the writer checks its outbound queue.
const DefaultWriteInterval = 10 * time.Millisecond

const maxLineLength = 1 << 20

// BridgeConfig configures a Bridge.
type BridgeConfig struct {
	Logger        zerolog.Logger
	WriteInterval time.Duration
}

// Bridge connects an engine's output and input streams to two unbounded
// queues served by background workers, so callers never block on engine I/O.
type Bridge struct {
	log      zerolog.Logger
	inbound  *lineQueue
	outbound *lineQueue

	group  *errgroup.Group
	cancel context.CancelFunc

	once sync.Once
	done chan struct{}
	err  error
}

// NewBridge starts the reader and writer workers. stdout is the engine's
// output, stdin the engine's input.
func NewBridge(stdout io.Reader, stdin io.Writer, cfg BridgeConfig) *Bridge {
	if cfg.WriteInterval <= 0 {
		cfg.WriteInterval = DefaultWriteInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	b := &Bridge{
		log:      cfg.Logger,
		inbound:  newLineQueue(),
		outbound: newLineQueue(),
		group:    g,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	g.Go(func() error {
		return b.fail(b.readLoop(stdout))
	})
	g.Go(func() error {
		return b.fail(b.writeLoop(ctx, stdin, cfg.WriteInterval))
	})

	return b
}

// Send queues a line for the engine. The newline is added by the writer.
func (b *Bridge) Send(line string) {
	b.log.Debug().Str("line", line).Msg("to engine")
	b.outbound.push(line)
}

// TryReceive returns the next buffered engine line, if there is one.
func (b *Bridge) TryReceive() (string, bool) {
	return b.inbound.pop()
}

// DrainAvailable returns every buffered engine line in arrival order.
func (b *Bridge) DrainAvailable() []string {
	var lines []string
	for {
		line, ok := b.TryReceive()
		if !ok {
			return lines
		}
		lines = append(lines, line)
	}
}

// Received signals (coalesced) that new engine output was buffered.
func (b *Bridge) Received() <-chan struct{} {
	return b.inbound.notify
}

// Done is closed once either worker has failed or the bridge was closed.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Err reports why the bridge stopped, or nil while it is running.
func (b *Bridge) Err() error {
	select {
	case <-b.done:
		return b.err
	default:
		return nil
	}
}

// Close stops the writer after it flushes what is queued. The reader
// exits when the engine closes its output.
func (b *Bridge) Close(context.Context) error {
	b.fail(ErrBridgeClosed)
	return nil
}

// Wait blocks until both workers have returned and reports the first
// error either of them returned.
func (b *Bridge) Wait() error {
	return b.group.Wait()
}

func (b *Bridge) fail(err error) error {
	if err == nil {
		return nil
	}
	b.once.Do(func() {
		b.err = err
		close(b.done)
		b.cancel()
		if err != ErrBridgeClosed {
			b.log.Error().Err(err).Msg("engine bridge failed")
		}
	})
	return err
}

func (b *Bridge) readLoop(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		b.log.Trace().Str("line", line).Msg("from engine")
		b.inbound.push(line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read engine output: %w", err)
	}
	return ErrEngineExited
}

func (b *Bridge) writeLoop(ctx context.Context, w io.Writer, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := b.flush(w); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return b.flush(w)
		case <-ticker.C:
		}
	}
}

func (b *Bridge) flush(w io.Writer) error {
	for {
		line, ok := b.outbound.pop()
		if !ok {
			return nil
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return fmt.Errorf("write engine input: %w", err)
		}
	}
}
