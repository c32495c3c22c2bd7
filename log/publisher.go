package log

import (
	"bytes"
	"sync"
)

const defaultTailSize = 64

// Publisher is an [io.Writer] that splits its input into lines and fans
// them out to subscribers.
//
// Log handlers write one entry per call, so in practice each line is one log
// entry. Partial lines are held until their newline arrives. The most recent
// lines are also kept in a bounded tail, so late subscribers such as a TUI
// that starts after the first log entries can still show them.
//
// Subscriber channels use ring-buffer semantics: when a channel is full its
// oldest line is dropped, so Write never blocks. Safe for concurrent use.
//
// Create instances with [NewPublisher].
type Publisher struct {
	subscribers []*Subscription
	tail        []string
	partial     []byte
	size        int
	mu          sync.Mutex
	closed      bool
}

// PublisherOption configures a [Publisher].
type PublisherOption func(*Publisher)

// WithBufferSize sets both the subscriber channel capacity and the number of
// lines kept in the tail. Values less than 1 are clamped to 1.
func WithBufferSize(n int) PublisherOption {
	return func(p *Publisher) {
		p.size = max(n, 1)
	}
}

// NewPublisher creates a [Publisher]. The default buffer size is 64 lines.
func NewPublisher(opts ...PublisherOption) *Publisher {
	p := &Publisher{
		size: defaultTailSize,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Write splits b into lines and delivers every complete line. It always
// returns len(b), nil.
func (p *Publisher) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return len(b), nil
	}

	p.partial = append(p.partial, b...)

	for {
		i := bytes.IndexByte(p.partial, '\n')
		if i < 0 {
			break
		}

		line := string(bytes.TrimRight(p.partial[:i], "\r"))
		p.partial = p.partial[i+1:]

		p.publish(line)
	}

	if len(p.partial) == 0 {
		p.partial = nil
	}

	return len(b), nil
}

func (p *Publisher) publish(line string) {
	p.tail = append(p.tail, line)
	if over := len(p.tail) - p.size; over > 0 {
		p.tail = p.tail[over:]
	}

	alive := p.subscribers[:0]
	for _, sub := range p.subscribers {
		if sub.isClosed() {
			close(sub.ch)
			continue
		}

		select {
		case sub.ch <- line:
		default:
			<-sub.ch

			sub.ch <- line
		}

		alive = append(alive, sub)
	}

	for i := len(alive); i < len(p.subscribers); i++ {
		p.subscribers[i] = nil
	}

	p.subscribers = alive
}

// Tail returns a copy of the most recent lines, oldest first.
func (p *Publisher) Tail() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.tail))
	copy(out, p.tail)

	return out
}

// Subscribe registers a new [Subscription]. If the Publisher is already
// closed the subscription's channel is closed immediately.
func (p *Publisher) Subscribe() *Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub := &Subscription{
		ch: make(chan string, p.size),
	}

	if p.closed {
		close(sub.ch)

		return sub
	}

	p.subscribers = append(p.subscribers, sub)

	return sub
}

// Close flushes any partial line, closes all subscription channels and
// stops accepting writes. Idempotent.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	if len(p.partial) > 0 {
		p.publish(string(p.partial))
		p.partial = nil
	}

	p.closed = true
	for _, sub := range p.subscribers {
		close(sub.ch)
	}

	p.subscribers = nil

	return nil
}

// Subscription receives lines from a [Publisher].
type Subscription struct {
	ch     chan string
	mu     sync.Mutex
	closed bool
}

// C returns the channel that delivers lines.
func (s *Subscription) C() <-chan string {
	return s.ch
}

// Close detaches the subscription. The Publisher closes the channel on its
// next published line or on [Publisher.Close]. Idempotent.
func (s *Subscription) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
