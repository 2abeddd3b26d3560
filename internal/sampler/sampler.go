// Package sampler infers a mood from a short burst of camera frames: faces are
// detected in every frame, each face is classified, and the most frequent
// coarse mood wins.
package sampler

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/go-moodify/internal/emotion"
	"github.com/justestif/go-moodify/internal/mood"
	"github.com/justestif/go-moodify/internal/vision"
)

// DefaultBudget is the sampling window used when none is given.
const DefaultBudget = 5 * time.Second

// ClassifyGrace is how long a classifier call may run past the budget before
// its context is cancelled.
const ClassifyGrace = time.Second

// ErrBusy is returned by TrySample while another run owns the camera.
var ErrBusy = errors.New("mood sampler is already running")

// Camera opens a frame source. A failed Open is an ordinary condition.
type Camera interface {
	Open(ctx context.Context) (FrameSource, error)
}

// FrameSource yields frames until it fails or is closed.
type FrameSource interface {
	ReadFrame() (image.Image, error)
	Close() error
}

// FaceDetector finds face regions in a grayscale frame.
type FaceDetector interface {
	Detect(gray *image.Gray) []image.Rectangle
}

// Renderer receives annotated frames for live feedback.
type Renderer interface {
	Render(frame image.Image)
	Clear()
}

// Config holds the collaborators resolved at startup. Camera, Detector,
// Classifier and Renderer may each be nil.
type Config struct {
	Camera     Camera
	Detector   FaceDetector
	Classifier emotion.Classifier
	Renderer   Renderer
	Logger     *slog.Logger
}

// Result is the outcome of one sampling run. Mood is always valid.
type Result struct {
	RunID    uuid.UUID
	Mood     mood.Mood
	Fallback bool // true when Mood was chosen at random
	Frames   int
	Samples  int
	Elapsed  time.Duration
}

// Sampler runs the capture, detect, classify and vote loop.
type Sampler struct {
	camera     Camera
	detector   FaceDetector
	classifier emotion.Classifier
	renderer   Renderer
	logger     *slog.Logger

	now func() time.Time
	rng *rand.Rand

	// mu gives one run exclusive use of the camera and guards rng.
	mu sync.Mutex
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRand replaces the random source used for fallbacks.
func WithRand(r *rand.Rand) Option {
	return func(s *Sampler) {
		if r != nil {
			s.rng = r
		}
	}
}

// New creates a Sampler.
func New(cfg Config, opts ...Option) *Sampler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sampler{
		camera:     cfg.Camera,
		detector:   cfg.Detector,
		classifier: cfg.Classifier,
		renderer:   cfg.Renderer,
		logger:     logger,
		now:        time.Now,
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether camera-based detection can run at all.
func (s *Sampler) Available() bool {
	return s.camera != nil && s.detector != nil
}

// ClassifierAvailable reports whether faces are classified by a model rather
// than labelled at random.
func (s *Sampler) ClassifierAvailable() bool {
	return s.classifier != nil
}

// Sample runs one sampling window, waiting for any run in flight to finish.
func (s *Sampler) Sample(ctx context.Context, budget time.Duration) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, budget)
}

// TrySample is Sample, but returns ErrBusy instead of waiting.
func (s *Sampler) TrySample(ctx context.Context, budget time.Duration) (Result, error) {
	if !s.mu.TryLock() {
		return Result{}, ErrBusy
	}
	defer s.mu.Unlock()
	return s.run(ctx, budget), nil
}

func (s *Sampler) run(ctx context.Context, budget time.Duration) Result {
	began := s.now()
	if budget <= 0 {
		budget = DefaultBudget
	}

	res := Result{RunID: uuid.New()}
	log := s.logger.With("run_id", res.RunID.String())

	if !s.Available() {
		log.Info("camera detection unavailable, choosing random mood")
		return s.finish(log, res, nil, began)
	}

	src, err := s.camera.Open(ctx)
	if err != nil {
		log.Warn("camera could not be opened, choosing random mood", "error", err)
		return s.finish(log, res, nil, began)
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("closing camera", "error", err)
		}
	}()
	if s.renderer != nil {
		defer s.renderer.Clear()
	}

	classifyCtx, cancel := context.WithTimeout(ctx, budget+ClassifyGrace)
	defer cancel()

	var samples []mood.Mood
	start := s.now()
	for s.now().Sub(start) < budget {
		frame, err := src.ReadFrame()
		if err != nil {
			log.Debug("frame capture ended early", "error", err, "frames", res.Frames)
			break
		}
		res.Frames++

		mirrored := vision.Mirror(frame)
		gray := vision.Grayscale(mirrored)
		faces := s.detector.Detect(gray)

		anns := make([]vision.Annotation, 0, len(faces))
		for _, r := range faces {
			input, ok := vision.FaceInput(gray, r)
			if !ok {
				continue
			}
			m := s.classify(classifyCtx, log, input).Mood()
			samples = append(samples, m)
			anns = append(anns, vision.Annotation{Rect: r, Label: m.String(), Hue: m.Hue()})
		}

		if s.renderer != nil {
			s.renderer.Render(vision.Annotate(mirrored, anns))
		}
	}

	return s.finish(log, res, samples, began)
}

// classify labels one face, falling back to a random label when no model is
// configured or the model fails.
func (s *Sampler) classify(ctx context.Context, log *slog.Logger, input []float32) mood.RawLabel {
	if s.classifier == nil {
		return mood.RandomLabel(s.rng)
	}

	scores, err := s.classifier.Classify(ctx, input)
	if err != nil {
		log.Warn("emotion classifier failed, using random label", "error", err)
		return mood.RandomLabel(s.rng)
	}
	label, err := mood.LabelFromScores(scores)
	if err != nil {
		log.Warn("emotion classifier returned bad scores, using random label", "error", err)
		return mood.RandomLabel(s.rng)
	}
	return label
}

func (s *Sampler) finish(log *slog.Logger, res Result, samples []mood.Mood, began time.Time) Result {
	res.Samples = len(samples)
	if m, ok := mood.Vote(samples); ok {
		res.Mood = m
	} else {
		res.Mood = mood.Random(s.rng)
		res.Fallback = true
	}
	res.Elapsed = s.now().Sub(began)

	log.Info("mood sampled",
		"mood", res.Mood.String(),
		"fallback", res.Fallback,
		"frames", res.Frames,
		"samples", res.Samples,
		"elapsed", res.Elapsed,
	)
	return res
}
