package portaudio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-caddie/core/audio"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var logger = otelslog.NewLogger("github.com/koscakluka/ema-caddie/core/audio/portaudio")

// Client is a playback-only output. Speech input needs the miniaudio
// backend.
type Client struct {
	stream *portaudio.Stream
	buffer *audio.Buffer
	out    []int16
	chunk  []byte

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewClient(framesPerBuffer int) (*Client, error) {
	if framesPerBuffer <= 0 {
		framesPerBuffer = audio.DefaultSampleRate / 50
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	c := &Client{
		buffer: audio.NewBuffer(audio.GetDefaultEncodingInfo()),
		out:    make([]int16, framesPerBuffer),
		chunk:  make([]byte, framesPerBuffer*2),
		done:   make(chan struct{}),
	}

	var err error
	if c.stream, err = portaudio.OpenDefaultStream(0, 1, audio.DefaultSampleRate, framesPerBuffer, c.out); err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}
	if err := c.stream.Start(); err != nil {
		_ = c.stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	c.wg.Add(1)
	go c.play()

	return c, nil
}

// play writes the buffer to the blocking stream, one period at a time.
func (c *Client) play() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.buffer.Fill(c.chunk)
		if err := binary.Read(bytes.NewReader(c.chunk), binary.LittleEndian, c.out); err != nil {
			logger.Warn("failed to decode audio chunk", "error", err)
			continue
		}
		if err := c.stream.Write(); err != nil {
			logger.Debug("portaudio write failed", "error", err)
		}
	}
}

func (c *Client) SendAudio(audio []byte) error {
	select {
	case <-c.done:
		return fmt.Errorf("client closed")
	default:
	}

	c.buffer.Write(audio)
	return nil
}

func (c *Client) ClearBuffer() {
	c.buffer.Clear()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
		_ = c.stream.Stop()
		_ = c.stream.Close()
		_ = portaudio.Terminate()
	})
}
