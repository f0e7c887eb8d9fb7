package seriallink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
)

var (
	// ErrNoActuator means no candidate or discovered port could be opened.
	ErrNoActuator = errors.New("no actuator link")
	// ErrDisconnected means a send found the link down and could not bring it back.
	ErrDisconnected = errors.New("actuator link disconnected")
)

// readTimeout bounds each telemetry read so Listen can notice cancellation.
const readTimeout = 500 * time.Millisecond

// Opener opens a named port at a baud rate.
type Opener func(name string, baud int) (io.ReadWriteCloser, error)

// Enumerator lists the serial devices present on the system.
type Enumerator func() ([]string, error)

type Options struct {
	Candidates []string      // tried first, in order
	Patterns   []string      // glob patterns for enumerated devices
	Baud       int           //
	Settle     time.Duration // wait after open; boards reset when the port opens
}

// Link is the line-oriented connection to the actuator. Sends are fire-and-forget:
// nothing is read back before returning.
type Link struct {
	opts      Options
	open      Opener
	enumerate Enumerator
	sleep     func(time.Duration)
	logger    *logger.Logger

	mu   sync.Mutex // held across a whole send, including rediscovery and settle
	port io.ReadWriteCloser
	name atomic.Pointer[string]
}

type Option func(*Link)

func WithOpener(open Opener) Option {
	return func(l *Link) { l.open = open }
}

func WithEnumerator(enumerate Enumerator) Option {
	return func(l *Link) { l.enumerate = enumerate }
}

func WithSleep(sleep func(time.Duration)) Option {
	return func(l *Link) { l.sleep = sleep }
}

// Connect discovers and opens the actuator port. It fails with ErrNoActuator when
// nothing opens; callers treat that as fatal.
func Connect(opts Options, logger *logger.Logger, options ...Option) (*Link, error) {
	l := &Link{
		opts:      opts,
		open:      OpenSerial,
		enumerate: serial.GetPortsList,
		sleep:     time.Sleep,
		logger:    logger,
	}
	for _, o := range options {
		o(l)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.discover(); err != nil {
		return nil, err
	}
	return l, nil
}

// OpenSerial opens a real serial device.
func OpenSerial(name string, baud int) (io.ReadWriteCloser, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

// Candidates lists ports in the order discovery tries them: the static list first,
// then enumerated devices matching a pattern. Enumeration failures are returned with
// whatever was gathered.
func Candidates(opts Options, enumerate Enumerator) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, name := range opts.Candidates {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	found, err := enumerate()
	for _, name := range found {
		if seen[name] || !matchesAny(name, opts.Patterns) {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, err
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

// discover must be called with mu held.
func (l *Link) discover() error {
	names, err := Candidates(l.opts, l.enumerate)
	if err != nil {
		l.logger.Warning("Serial port enumeration failed: %v", err)
	}

	for _, name := range names {
		port, err := l.open(name, l.opts.Baud)
		if err != nil {
			l.logger.Debug("Could not open %s: %v", name, err)
			continue
		}
		l.sleep(l.opts.Settle)
		l.port = port
		l.name.Store(&name)
		l.logger.Info("Connected to actuator on %s at %d baud", name, l.opts.Baud)
		return nil
	}

	if len(names) == 0 {
		return fmt.Errorf("%w: no candidate ports", ErrNoActuator)
	}
	return fmt.Errorf("%w: tried %s", ErrNoActuator, strings.Join(names, ", "))
}

// Send writes one command. A link found down is rediscovered first; a failed write
// closes the port so the next Send rediscovers.
func (l *Link) Send(cmd Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		if err := l.discover(); err != nil {
			return fmt.Errorf("%w: %w", ErrDisconnected, err)
		}
	}

	line := cmd.String()
	if _, err := io.WriteString(l.port, line); err != nil {
		name := l.Port()
		l.dropLocked()
		return fmt.Errorf("write %q to %s: %w", strings.TrimSpace(line), name, err)
	}
	return nil
}

func (l *Link) dropLocked() {
	if l.port != nil {
		l.port.Close()
	}
	l.port = nil
	l.name.Store(nil)
}

// Port is the device in use, empty while disconnected. It does not wait for a send
// that is rediscovering the port.
func (l *Link) Port() string {
	if name := l.name.Load(); name != nil {
		return *name
	}
	return ""
}

func (l *Link) current() io.ReadWriteCloser {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port
}

// Listen calls fn with every line the actuator sends until ctx is done. Lines are
// telemetry only; nothing waits on them. Read errors are retried once the link is
// back, since Send may have swapped the port underneath.
func (l *Link) Listen(ctx context.Context, fn func(line string)) error {
	buf := make([]byte, 256)
	var pending []byte

	for ctx.Err() == nil {
		port := l.current()
		if port == nil {
			if !wait(ctx, time.Second) {
				break
			}
			continue
		}

		n, err := port.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				if line := strings.TrimSpace(string(pending[:i])); line != "" {
					fn(line)
				}
				pending = pending[i+1:]
			}
		}
		if err != nil {
			pending = pending[:0]
			if !wait(ctx, time.Second) {
				break
			}
		}
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	l.name.Store(nil)
	return err
}
