// Package session binds the editor to one frame of a project at a time: it
// loads frames from the backend, saves annotations back, and drops responses
// that arrive after the user has moved to another frame.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/menta2k/box-annotator/pkg/backend"
	"github.com/menta2k/box-annotator/pkg/boxes"
	"github.com/menta2k/box-annotator/pkg/coords"
	"github.com/menta2k/box-annotator/pkg/editor"
	"github.com/menta2k/box-annotator/pkg/labels"
	"github.com/menta2k/box-annotator/pkg/processing"
	"github.com/menta2k/box-annotator/pkg/types"
)

var (
	// ErrNoFrame is returned when an operation needs a loaded frame.
	ErrNoFrame = errors.New("no frame loaded")
	// ErrNoImages is returned when the project has no images to navigate.
	ErrNoImages = errors.New("project has no images")
)

// Backend is the subset of the annotation API the session uses.
type Backend interface {
	ImageCount(ctx context.Context, projectID string) (*backend.ImageCount, error)
	Frame(ctx context.Context, projectID string, frame int) (*backend.Frame, error)
	UpdateAnnotations(ctx context.Context, imageID int64, lines []string, finished bool) error
	Labels(ctx context.Context, projectID string) ([]labels.Label, error)
	UpdateLabels(ctx context.Context, projectID string, ls []labels.Label) error
	GenerateDataset(ctx context.Context, projectID string) (*backend.DatasetResult, error)
}

// Options configures a session.
type Options struct {
	// Display bounds the size frames are shown at. Frames larger than this are
	// scaled down, smaller ones are shown at natural size.
	Display types.Size
	Editor  editor.Options
}

type resultKind int

const (
	kindLoad resultKind = iota
	kindSave
)

// Result is the outcome of an asynchronous load or save. Pass it to Apply on
// the goroutine that owns the session.
type Result struct {
	kind  resultKind
	gen   uint64
	frame int
	err   error

	loaded   *backend.Frame
	natural  types.Size
	sizeErr  error
	finished bool
	revision uint64
}

// Frame returns the frame number the result belongs to.
func (r Result) Frame() int { return r.frame }

// Err returns the request error, if any.
func (r Result) Err() error { return r.err }

// IsSave reports whether the result is from a save.
func (r Result) IsSave() bool { return r.kind == kindSave }

// Session is not safe for concurrent use. Asynchronous requests only touch the
// backend; their results are applied through Apply.
type Session struct {
	projectID string
	api       Backend
	proc      *processing.Processor
	opts      Options
	logger    *zap.Logger
	notifier  Notifier

	store  *boxes.Store
	labels *labels.Set
	editor *editor.Editor

	gen      uint64
	frame    int
	total    int
	current  *backend.Frame
	natural  types.Size
	display  types.Size
	finished bool
	results  chan Result
}

// New creates a session for a project. logger and notifier may be nil.
func New(projectID string, api Backend, opts Options, logger *zap.Logger, notifier Notifier) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = discard{}
	}
	store := boxes.New()
	set := labels.NewSet(nil, nil)
	return &Session{
		projectID: projectID,
		api:       api,
		proc:      processing.NewProcessor(),
		opts:      opts,
		logger:    logger.With(zap.String("project", projectID)),
		notifier:  notifier,
		store:     store,
		labels:    set,
		editor:    editor.New(store, set, opts.Editor, logger),
		results:   make(chan Result, 8),
	}
}

// ProjectID returns the project the session edits.
func (s *Session) ProjectID() string { return s.projectID }

// Editor returns the canvas editor bound to the current frame.
func (s *Session) Editor() *editor.Editor { return s.editor }

// Store returns the boxes of the current frame.
func (s *Session) Store() *boxes.Store { return s.store }

// Labels returns the project label set.
func (s *Session) Labels() *labels.Set { return s.labels }

// Frame returns the current 1-based frame number, 0 before the first load.
func (s *Session) Frame() int { return s.frame }

// Total returns the number of frames in the project.
func (s *Session) Total() int { return s.total }

// Current returns the loaded frame, or nil while a load is pending.
func (s *Session) Current() *backend.Frame { return s.current }

// Natural returns the natural pixel size of the current frame image.
func (s *Session) Natural() types.Size { return s.natural }

// Display returns the size the current frame is displayed at.
func (s *Session) Display() types.Size { return s.display }

// SetDisplaySize changes the display size. Boxes already on the canvas are not
// moved.
func (s *Session) SetDisplaySize(size types.Size) {
	s.display = size
	s.editor.SetCanvasSize(size)
}

// Dirty reports unsaved changes.
func (s *Session) Dirty() bool { return s.store.Dirty() }

// Finished reports whether the frame was last saved as finished with no edits since.
func (s *Session) Finished() bool { return s.finished && !s.store.Dirty() }

// Results delivers asynchronous load and save outcomes.
func (s *Session) Results() <-chan Result { return s.results }

// FrameImage decodes the current frame image.
func (s *Session) FrameImage() (image.Image, error) {
	if s.current == nil {
		return nil, ErrNoFrame
	}
	return s.proc.DecodeFrame(s.current.Image)
}

// Start reads the project size and loads frame synchronously.
func (s *Session) Start(ctx context.Context, frame int) error {
	if err := s.RefreshCount(ctx); err != nil {
		return err
	}
	if s.total == 0 {
		return ErrNoImages
	}
	if err := s.RefreshLabels(ctx); err != nil {
		s.logger.Warn("using labels delivered with frames", zap.Error(err))
	}
	return s.Open(ctx, frame)
}

// RefreshCount reloads the number of frames.
func (s *Session) RefreshCount(ctx context.Context) error {
	count, err := s.api.ImageCount(ctx, s.projectID)
	if err != nil {
		s.notify(LevelError, "Failed to load image count.", err)
		return err
	}
	s.total = count.TotalImages
	return nil
}

// Open navigates to frame and loads it synchronously.
func (s *Session) Open(ctx context.Context, frame int) error {
	n, gen := s.begin(frame)
	r := s.fetch(ctx, gen, n)
	s.Apply(r)
	return r.err
}

// Goto navigates to frame, clamped to [1, Total], and loads it in the
// background. The clamped frame number is returned.
func (s *Session) Goto(ctx context.Context, frame int) int {
	n, gen := s.begin(frame)
	go func() {
		s.deliver(ctx, s.fetch(ctx, gen, n))
	}()
	return n
}

// Next moves one frame forward.
func (s *Session) Next(ctx context.Context) int { return s.Goto(ctx, s.frame+1) }

// Prev moves one frame back.
func (s *Session) Prev(ctx context.Context) int { return s.Goto(ctx, s.frame-1) }

// Apply applies a load or save result. Results from before the latest
// navigation are dropped and false is returned.
func (s *Session) Apply(r Result) bool {
	if r.gen != s.gen {
		s.logger.Debug("dropping stale response",
			zap.Int("frame", r.frame), zap.Uint64("generation", r.gen), zap.Uint64("current", s.gen))
		return false
	}

	switch r.kind {
	case kindLoad:
		if r.err != nil {
			s.notify(LevelError, fmt.Sprintf("Failed to load frame %d.", r.frame), r.err)
			return true
		}
		s.applyFrame(r)
	case kindSave:
		if r.err != nil {
			msg := "Failed to save."
			if r.finished {
				msg = "Failed to mark as finished."
			}
			s.notify(LevelError, msg, r.err)
			return true
		}
		if !s.store.MarkSavedAt(r.revision) {
			s.logger.Debug("boxes changed while saving, keeping unsaved flag")
		}
		s.finished = r.finished
		msg := "Saved successfully!"
		if r.finished {
			msg = "Marked as finished!"
		}
		s.notify(LevelSuccess, msg, nil)
	}
	return true
}

// Save converts the boxes to YOLO lines and stores them synchronously. On
// failure the local state is left untouched.
func (s *Session) Save(ctx context.Context, finished bool) error {
	r, lines, imageID, err := s.prepareSave(finished)
	if err != nil {
		return err
	}
	r.err = s.api.UpdateAnnotations(ctx, imageID, lines, finished)
	s.Apply(r)
	return r.err
}

// SaveAsync is Save with the request running in the background. Conversion
// errors are returned immediately.
func (s *Session) SaveAsync(ctx context.Context, finished bool) error {
	r, lines, imageID, err := s.prepareSave(finished)
	if err != nil {
		return err
	}
	go func() {
		r.err = s.api.UpdateAnnotations(ctx, imageID, lines, finished)
		s.deliver(ctx, r)
	}()
	return nil
}

// MarkFinished saves with the finished flag set.
func (s *Session) MarkFinished(ctx context.Context) error {
	return s.Save(ctx, true)
}

// Lines returns the current boxes as YOLO lines without saving them.
func (s *Session) Lines() ([]string, error) {
	if s.current == nil {
		return nil, ErrNoFrame
	}
	return coords.SaveLines(s.store.Boxes(), s.labels, s.natural, s.display)
}

// AddBoxes appends already-built boxes, such as model proposals, to the frame.
func (s *Session) AddBoxes(bs []boxes.BoundingBox) int {
	if len(bs) == 0 {
		return 0
	}
	s.store.Append(bs...)
	s.notify(LevelInfo, fmt.Sprintf("Added %d suggested boxes.", len(bs)), nil)
	return len(bs)
}

// RefreshLabels reloads the project label set.
func (s *Session) RefreshLabels(ctx context.Context) error {
	ls, err := s.api.Labels(ctx, s.projectID)
	if err != nil {
		return err
	}
	if len(ls) > 0 {
		s.setLabels(ls)
	}
	return nil
}

// UpdateLabels replaces the project label set on the backend and locally.
// Boxes keep their current colors.
func (s *Session) UpdateLabels(ctx context.Context, ls []labels.Label) error {
	if err := s.api.UpdateLabels(ctx, s.projectID, ls); err != nil {
		s.notify(LevelError, "Failed to update labels.", err)
		return err
	}
	s.setLabels(ls)
	s.notify(LevelSuccess, "Labels updated.", nil)
	return nil
}

// GenerateDataset requests dataset generation from the finished frames.
func (s *Session) GenerateDataset(ctx context.Context) (*backend.DatasetResult, error) {
	res, err := s.api.GenerateDataset(ctx, s.projectID)
	if err != nil {
		s.notify(LevelError, "Dataset generation failed.", err)
		return nil, err
	}
	switch {
	case res.Labeled:
		s.notify(LevelSuccess, res.Message, nil)
	case res.Missing > 0:
		s.notify(LevelError, fmt.Sprintf("Not enough finished images: %d more needed.", res.Missing), nil)
	default:
		s.notify(LevelInfo, res.Message, nil)
	}
	return res, nil
}

func (s *Session) clamp(frame int) int {
	if s.total > 0 && frame > s.total {
		frame = s.total
	}
	if frame < 1 {
		frame = 1
	}
	return frame
}

// begin starts a navigation: it invalidates every request in flight and
// empties the canvas until the new frame arrives.
func (s *Session) begin(frame int) (int, uint64) {
	if s.store.Dirty() {
		s.logger.Info("discarding unsaved changes", zap.Int("frame", s.frame))
	}
	s.gen++
	s.frame = s.clamp(frame)
	s.current = nil
	s.finished = false
	s.store.Replace(nil)
	s.editor.Reset()
	return s.frame, s.gen
}

func (s *Session) fetch(ctx context.Context, gen uint64, frame int) Result {
	r := Result{kind: kindLoad, gen: gen, frame: frame}
	f, err := s.api.Frame(ctx, s.projectID, frame)
	if err != nil {
		r.err = err
		return r
	}
	r.loaded = f
	r.natural, r.sizeErr = s.proc.FrameSize(f.Image)
	return r
}

func (s *Session) deliver(ctx context.Context, r Result) {
	select {
	case s.results <- r:
	case <-ctx.Done():
		s.logger.Debug("result discarded", zap.Int("frame", r.frame), zap.Error(ctx.Err()))
	}
}

func (s *Session) applyFrame(r Result) {
	f := r.loaded
	s.current = f
	if len(f.Labels) > 0 {
		s.labels.Replace(f.Labels, f.Colors)
	}

	natural := r.natural
	if r.sizeErr != nil || !natural.Valid() {
		s.logger.Warn("frame image size unknown, using display size",
			zap.Int("frame", r.frame), zap.Error(r.sizeErr))
		natural = s.opts.Display
	}
	display := natural
	if s.opts.Display.Valid() {
		display = processing.Fit(natural, s.opts.Display)
	}
	s.natural = natural
	s.SetDisplaySize(display)

	s.store.Replace(coords.LoadBoxes(f.Records, s.labels, display))
	s.finished = f.Finished
	s.editor.Reset()

	s.logger.Debug("frame loaded",
		zap.Int("frame", r.frame),
		zap.Int64("image_id", f.ImageID),
		zap.Int("boxes", s.store.Len()),
		zap.Bool("finished", f.Finished))
}

func (s *Session) prepareSave(finished bool) (Result, []string, int64, error) {
	if s.current == nil {
		return Result{}, nil, 0, ErrNoFrame
	}
	lines, err := coords.SaveLines(s.store.Boxes(), s.labels, s.natural, s.display)
	if err != nil {
		msg := "Failed to save."
		if finished {
			msg = "Failed to mark as finished."
		}
		s.notify(LevelError, msg, err)
		return Result{}, nil, 0, err
	}
	r := Result{
		kind:     kindSave,
		gen:      s.gen,
		frame:    s.frame,
		finished: finished,
		revision: s.store.Revision(),
	}
	return r, lines, s.current.ImageID, nil
}

func (s *Session) setLabels(ls []labels.Label) {
	names := make([]string, len(ls))
	colors := make([]string, len(ls))
	for i, l := range ls {
		names[i] = l.Name
		colors[i] = l.Color
	}
	s.labels.Replace(names, colors)
}

func (s *Session) notify(level Level, msg string, err error) {
	if err != nil {
		s.logger.Warn(msg, zap.Error(err))
	}
	s.notifier.Notify(Notification{Level: level, Message: msg, Err: err})
}
