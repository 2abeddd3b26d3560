package camera

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

type nopCloser struct {
	io.Reader
	closed bool
}

func (n *nopCloser) Close() error {
	n.closed = true
	return nil
}

func TestStreamReadFrame(t *testing.T) {
	t.Parallel()

	// Two 2x1 frames: red+green, then blue+white.
	raw := []byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 255, 255, 255,
	}
	src := &nopCloser{Reader: bytes.NewReader(raw)}
	s := newStream(src, 2, 1)

	first, err := s.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	rgba := first.(*image.RGBA)
	if c := rgba.RGBAAt(0, 0); c != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("frame 1 pixel 0 = %v", c)
	}
	if c := rgba.RGBAAt(1, 0); c != (color.RGBA{G: 255, A: 255}) {
		t.Errorf("frame 1 pixel 1 = %v", c)
	}

	second, err := s.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if c := second.(*image.RGBA).RGBAAt(1, 0); c != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("frame 2 pixel 1 = %v", c)
	}

	if _, err := s.ReadFrame(); err == nil {
		t.Error("expected error once the stream is exhausted")
	}

	if err := s.Close(); err != nil || !src.closed {
		t.Errorf("Close() error = %v, closed = %v", err, src.closed)
	}
}

func TestStreamPartialFrame(t *testing.T) {
	t.Parallel()

	s := newStream(&nopCloser{Reader: bytes.NewReader([]byte{1, 2, 3})}, 2, 1)
	if _, err := s.ReadFrame(); err == nil {
		t.Error("expected error for a truncated frame")
	}
}

func TestNewFillsDefaults(t *testing.T) {
	t.Parallel()

	c := New(Config{})
	args := c.Args()

	for _, want := range []string{"v4l2", "/dev/video0", "640x480", "rgb24", "rawvideo"} {
		if !slices.Contains(args, want) {
			t.Errorf("args %v missing %q", args, want)
		}
	}
}

func TestDeviceForIndex(t *testing.T) {
	t.Parallel()

	if got := DeviceForIndex(2); got != "/dev/video2" {
		t.Errorf("DeviceForIndex(2) = %q", got)
	}
}

func TestOpenWithFakeFFMPEG(t *testing.T) {
	t.Parallel()

	// 2x2 frame = 12 bytes of rgb24, emitted once, then the script idles.
	script := filepath.Join(t.TempDir(), "ffmpeg.sh")
	body := "#!/usr/bin/env bash\nprintf 'abcdefghijkl'\nsleep 2\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	c := New(Config{Command: script, Width: 2, Height: 2})
	src, err := c.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	frame, err := src.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if frame.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Errorf("bounds = %v", frame.Bounds())
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestOpenFailure(t *testing.T) {
	t.Parallel()

	script := filepath.Join(t.TempDir(), "ffmpeg.sh")
	body := "#!/usr/bin/env bash\necho '/dev/video0: No such file or directory' 1>&2\nexit 1\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	_, err := New(Config{Command: script}).Open(context.Background())
	if err == nil {
		t.Fatal("expected error when the device cannot be opened")
	}
	if !strings.Contains(err.Error(), "opening camera") {
		t.Errorf("unexpected error: %v", err)
	}
}
