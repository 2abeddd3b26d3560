// Package camera captures webcam frames by reading raw RGB video from ffmpeg.
package camera

import (
	"context"
	"fmt"
	"image"
	"io"
	"strconv"

	"github.com/justestif/go-moodify/internal/ffmpeg"
	"github.com/justestif/go-moodify/internal/sampler"
)

// Config describes the capture device and frame geometry.
type Config struct {
	Command     string
	InputFormat string
	Device      string
	Width       int
	Height      int
	FrameRate   int
}

// DefaultConfig captures 640x480 at 15fps from the first video device.
func DefaultConfig() Config {
	return Config{
		Command:     ffmpeg.DefaultCommand,
		InputFormat: "v4l2",
		Device:      DeviceForIndex(0),
		Width:       640,
		Height:      480,
		FrameRate:   15,
	}
}

// DeviceForIndex returns the V4L2 device path for a camera index.
func DeviceForIndex(i int) string {
	return fmt.Sprintf("/dev/video%d", i)
}

// FFMPEGCamera opens the configured device through ffmpeg.
type FFMPEGCamera struct {
	cfg Config
}

// New creates a camera, filling unset fields from DefaultConfig.
func New(cfg Config) *FFMPEGCamera {
	def := DefaultConfig()
	if cfg.Command == "" {
		cfg.Command = def.Command
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = def.InputFormat
	}
	if cfg.Device == "" {
		cfg.Device = def.Device
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = def.FrameRate
	}
	return &FFMPEGCamera{cfg: cfg}
}

// Args returns the ffmpeg arguments used to open the device.
func (c *FFMPEGCamera) Args() []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", c.cfg.InputFormat,
		"-framerate", strconv.Itoa(c.cfg.FrameRate),
		"-video_size", fmt.Sprintf("%dx%d", c.cfg.Width, c.cfg.Height),
		"-i", c.cfg.Device,
		"-vf", fmt.Sprintf("scale=%d:%d", c.cfg.Width, c.cfg.Height),
		"-pix_fmt", "rgb24",
		"-f", "rawvideo",
		"-",
	}
}

// Open starts capture. The returned source must be closed by the caller.
func (c *FFMPEGCamera) Open(ctx context.Context) (sampler.FrameSource, error) {
	proc, err := ffmpeg.Start(ctx, c.cfg.Command, c.Args())
	if err != nil {
		return nil, fmt.Errorf("opening camera %s: %w", c.cfg.Device, err)
	}
	return newStream(proc, c.cfg.Width, c.cfg.Height), nil
}

// stream decodes fixed-size rgb24 frames from a reader.
type stream struct {
	src           io.ReadCloser
	width, height int
	buf           []byte
}

func newStream(src io.ReadCloser, width, height int) *stream {
	return &stream{
		src:    src,
		width:  width,
		height: height,
		buf:    make([]byte, width*height*3),
	}
}

// ReadFrame blocks until one full frame has been read.
func (s *stream) ReadFrame() (image.Image, error) {
	if _, err := io.ReadFull(s.src, s.buf); err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	for i, j := 0, 0; i < len(s.buf); i, j = i+3, j+4 {
		img.Pix[j] = s.buf[i]
		img.Pix[j+1] = s.buf[i+1]
		img.Pix[j+2] = s.buf[i+2]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}

func (s *stream) Close() error {
	return s.src.Close()
}
