package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// ErrCaptureClosed is returned by ReadFrame once the record stream has stopped.
var ErrCaptureClosed = errors.New("audio capture closed")

const frameBacklog = 256

// FrameSource yields fixed-size little-endian s16 mono PCM frames.
type FrameSource interface {
	ReadFrame(context.Context) ([]byte, error)
	// Discard drops buffered frames and reports how many were dropped.
	Discard() int
}

// CaptureConfig fixes the record format shared by every consumer of the microphone.
type CaptureConfig struct {
	SampleRate int
	FrameBytes int
}

// Capture streams fixed-size PCM frames from one selected Pulse source.
// It is opened once and handed between consumers; nobody else may open the device.
type Capture struct {
	device     Device
	frameBytes int

	client *pulse.Client
	stream *pulse.RecordStream

	frames chan []byte
	stopCh chan struct{}

	mu      sync.Mutex
	pending []byte
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
	dropped  atomic.Int64
}

// StartCapture opens a mono s16 record stream on the selected device.
func StartCapture(ctx context.Context, selected Device, cfg CaptureConfig) (*Capture, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid capture sample rate %d", cfg.SampleRate)
	}
	if cfg.FrameBytes <= 0 || cfg.FrameBytes%2 != 0 {
		return nil, fmt.Errorf("invalid capture frame size %d", cfg.FrameBytes)
	}

	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	capture := newCapture(selected, cfg.FrameBytes)
	capture.client = client

	writer := pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(cfg.SampleRate),
		pulse.RecordBufferFragmentSize(uint32(cfg.FrameBytes)),
		pulse.RecordMediaName("bingo listener"),
	)
	if err != nil {
		capture.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	capture.stream = stream
	stream.Start()

	go func() {
		<-ctx.Done()
		_ = capture.Stop()
	}()

	return capture, nil
}

func newCapture(device Device, frameBytes int) *Capture {
	return &Capture{
		device:     device,
		frameBytes: frameBytes,
		frames:     make(chan []byte, frameBacklog),
		stopCh:     make(chan struct{}),
	}
}

// Device returns capture metadata for logging and diagnostics.
func (c *Capture) Device() Device {
	return c.device
}

// BytesCaptured reports total bytes accepted from Pulse.
func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// FramesDropped reports frames evicted because no consumer was reading.
func (c *Capture) FramesDropped() int64 {
	return c.dropped.Load()
}

// ReadFrame blocks for the next frame. A closed stream is reported as ErrCaptureClosed.
func (c *Capture) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame, ok := <-c.frames:
		if !ok {
			return nil, ErrCaptureClosed
		}
		return frame, nil
	}
}

// Discard drops every frame buffered so far.
func (c *Capture) Discard() int {
	n := 0
	for {
		select {
		case _, ok := <-c.frames:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

// Stop halts the stream and closes the frame channel exactly once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()

	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()

	close(c.frames)
	return nil
}

// Close is a convenience alias for Stop.
func (c *Capture) Close() {
	_ = c.Stop()
}

// onPCM slices raw Pulse buffers into frames. When the backlog is full the
// oldest frame is evicted so the record stream never blocks.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same mutex as c.stopped to avoid Add/Wait races.
	c.inflight.Add(1)

	c.pending = append(c.pending, buffer...)
	frames := make([][]byte, 0, len(c.pending)/c.frameBytes)
	for len(c.pending) >= c.frameBytes {
		frame := make([]byte, c.frameBytes)
		copy(frame, c.pending[:c.frameBytes])
		c.pending = c.pending[c.frameBytes:]
		frames = append(frames, frame)
	}
	c.mu.Unlock()
	defer c.inflight.Done()

	c.bytes.Add(int64(len(buffer)))

	for _, frame := range frames {
		c.push(frame)
	}
	return len(buffer), nil
}

func (c *Capture) push(frame []byte) {
	for {
		select {
		case c.frames <- frame:
			return
		default:
		}
		select {
		case <-c.frames:
			c.dropped.Add(1)
		default:
		}
	}
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
