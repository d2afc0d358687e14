// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/desertthunder/polyplayer/internal/transport"
)

// MockTransport is a test double for [transport.Transport] handing out [MockConn]s.
type MockTransport struct {
	mu sync.Mutex
	// ConnectErr, when set, fails every Connect.
	ConnectErr error
	// OnConnect runs before each connection is created, outside the lock.
	OnConnect func(guildID, channelID uint64)
	// WithGain gives new connections a volume control.
	WithGain bool

	conns    map[uint64]*MockConn
	connects int
}

func NewMockTransport() *MockTransport {
	return &MockTransport{conns: make(map[uint64]*MockConn)}
}

func (m *MockTransport) Connect(ctx context.Context, guildID, channelID uint64) (transport.Conn, error) {
	if m.OnConnect != nil {
		m.OnConnect(guildID, channelID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.connects++
	if m.ConnectErr != nil {
		return nil, m.ConnectErr
	}

	conn := &MockConn{}
	if m.WithGain {
		conn.gain = transport.NewGain(1)
	}
	m.conns[channelID] = conn
	return conn, nil
}

// Conn returns the latest connection made to channelID.
func (m *MockTransport) Conn(channelID uint64) *MockConn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conns[channelID]
}

// Connects counts Connect calls, failed ones included.
func (m *MockTransport) Connects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connects
}

// MockConn is a test double for [transport.Conn]. Playback lasts until [MockConn.Finish] or Stop.
type MockConn struct {
	mu           sync.Mutex
	PlayErr      error
	urls         []string
	playing      bool
	paused       bool
	disconnected bool
	gain         *transport.Gain
}

func (c *MockConn) Play(url string, policy transport.ReconnectPolicy) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.urls = append(c.urls, url)
	if c.PlayErr != nil {
		return c.PlayErr
	}
	c.playing, c.paused = true, false
	return nil
}

func (c *MockConn) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing && !c.paused
}

func (c *MockConn) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing && c.paused
}

func (c *MockConn) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		c.paused = true
	}
}

func (c *MockConn) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
}

func (c *MockConn) Stop() {
	c.Finish()
}

// Finish ends the current stream as if it ran out.
func (c *MockConn) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing, c.paused = false, false
}

func (c *MockConn) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing, c.paused = false, false
	c.disconnected = true
	return nil
}

func (c *MockConn) Gain() (transport.GainControl, bool) {
	if c.gain == nil {
		return nil, false
	}
	return c.gain, true
}

// Played returns every URL passed to Play, in order.
func (c *MockConn) Played() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.urls)
}

func (c *MockConn) Disconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
