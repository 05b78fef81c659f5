// Package app wires the camera, pose detector, rep counting and storage into
// the running curl counter.
package app

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/curlcount/internal/capture"
	"github.com/ayusman/curlcount/internal/detector"
	"github.com/ayusman/curlcount/internal/pose"
	"github.com/ayusman/curlcount/internal/rep"
	"github.com/ayusman/curlcount/internal/store"
)

// subscriberBuffer is how many snapshots a slow subscriber may lag behind
// before updates to it are dropped.
const subscriberBuffer = 8

// motionHold is how long frames keep going to the detector after the last
// detected motion, so a rep that ends in a still pose is seen settle.
const motionHold = 2 * time.Second

// Config holds configuration options for the application.
type Config struct {
	// Store is optional; without it nothing is persisted.
	Store    *store.Store
	Camera   capture.Config
	Detector detector.Config
	Session  rep.SessionConfig

	// MotionThreshold is the percentage of changed pixels a frame needs
	// before it is sent to the detector. Zero sends every frame.
	MotionThreshold float64
}

// App runs the counting loop and exposes its state to the server and tray.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	session  *rep.Session

	// Owned by the pipeline goroutine.
	motion     *capture.MotionDetector
	lastMotion time.Time

	mu        sync.RWMutex
	enabled   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	sessionID string
	frame     int
	last      rep.Snapshot
	jpeg      []byte
	subs      map[<-chan rep.Snapshot]chan rep.Snapshot
}

// New creates an App. The session configuration is validated here; a stored
// session is opened right away when a Store is configured.
func New(config Config) (*App, error) {
	session, err := rep.NewSession(config.Session)
	if err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}

	a := &App{
		config:  config,
		camera:  capture.NewCamera(config.Camera),
		session: session,
		enabled: true,
		last:    session.Snapshot(),
		subs:    make(map[<-chan rep.Snapshot]chan rep.Snapshot),
	}
	if config.MotionThreshold > 0 {
		a.motion = capture.NewMotionDetector(config.MotionThreshold)
	}

	// Try MediaPipe first, fall back to mock detector
	if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
		a.detector = mp
		log.Info().Msg("using MediaPipe pose detection")
	} else {
		log.Warn().Err(err).Msg("MediaPipe not available, using mock detector")
		a.detector = detector.NewMockDetector()
	}

	if err := a.beginSession(time.Now()); err != nil {
		return nil, err
	}

	return a, nil
}

// SetCamera replaces the camera. It must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// SetDetector sets the pose detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the pose detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// SetEnabled pauses or resumes counting. Frames are not read while paused.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled reports whether counting is running.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Mode returns the counting mode.
func (a *App) Mode() rep.Mode {
	return a.session.Mode()
}

// Limbs returns the arms being counted.
func (a *App) Limbs() []rep.Limb {
	return a.session.Limbs()
}

// SessionID returns the ID of the current stored session, or "" without a
// store.
func (a *App) SessionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessionID
}

// Snapshot returns the most recent counting state.
func (a *App) Snapshot() rep.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// Frames returns how many frames have been processed in the current session.
func (a *App) Frames() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frame
}

// LatestFrameJPEG returns the most recent annotated frame, or nil before the
// first frame has been captured.
func (a *App) LatestFrameJPEG() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.jpeg
}

// Subscribe returns a channel that receives a snapshot whenever the counts,
// contraction flags or detection state change.
func (a *App) Subscribe() <-chan rep.Snapshot {
	ch := make(chan rep.Snapshot, subscriberBuffer)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.subs[ch] = ch
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (a *App) Unsubscribe(ch <-chan rep.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if c, ok := a.subs[ch]; ok {
		delete(a.subs, ch)
		close(c)
	}
}

// ProcessLandmarks advances the counters by one frame. lm may be nil when no
// pose was found. New reps are persisted and subscribers are notified when
// the state changed.
func (a *App) ProcessLandmarks(lm *pose.Landmarks, at time.Time) rep.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.frame++
	prev := a.last
	snap := a.session.Process(lm)
	a.last = snap

	if len(snap.Events) > 0 {
		a.persistEvents(snap, at)
	}
	if changed(prev, snap) {
		a.publish(snap)
	}

	return snap
}

// Reset finishes the current stored session, zeroes the counters and starts
// a new session.
func (a *App) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	if err := a.finishSession(now); err != nil {
		return err
	}
	// The finished session must not collect events if beginSession fails.
	a.sessionID = ""

	a.session.Reset()
	a.frame = 0
	a.last = a.session.Snapshot()

	if err := a.beginSession(now); err != nil {
		return err
	}

	log.Info().Str("session", a.sessionID).Msg("counters reset")
	a.publish(a.last)
	return nil
}

// Close stops the pipeline, finishes the stored session and releases the
// detector.
func (a *App) Close() error {
	a.Stop()

	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.finishSession(time.Now())
	a.sessionID = ""

	if a.detector != nil {
		err = errors.Join(err, a.detector.Close())
	}
	if a.motion != nil {
		a.motion.Close()
	}
	for key, ch := range a.subs {
		delete(a.subs, key)
		close(ch)
	}
	return err
}

// beginSession opens a new stored session. Callers hold a.mu or have not
// shared a yet.
func (a *App) beginSession(at time.Time) error {
	if a.config.Store == nil {
		return nil
	}

	sess := &store.Session{
		ID:        uuid.NewString(),
		Mode:      string(a.session.Mode()),
		Threshold: a.config.Session.Threshold(),
		StartedAt: at,
	}
	if err := a.config.Store.Sessions().Create(sess); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	a.sessionID = sess.ID
	return nil
}

// finishSession records the final totals of the current stored session.
func (a *App) finishSession(at time.Time) error {
	if a.config.Store == nil || a.sessionID == "" {
		return nil
	}

	err := a.config.Store.Sessions().Finish(a.sessionID, a.last.Reps(rep.LimbLeft), a.last.Reps(rep.LimbRight), at)
	if err != nil {
		return fmt.Errorf("finish session %s: %w", a.sessionID, err)
	}
	return nil
}

// persistEvents stores the reps completed on this frame. Failures are logged
// and do not stop counting.
func (a *App) persistEvents(snap rep.Snapshot, at time.Time) {
	for _, ev := range snap.Events {
		log.Info().Str("limb", string(ev.Limb)).Uint("rep", ev.Rep).Float64("signal", ev.Signal).Msg("rep counted")
	}

	if a.config.Store == nil || a.sessionID == "" {
		return
	}

	for _, ev := range snap.Events {
		err := a.config.Store.Events().Create(&store.Event{
			SessionID: a.sessionID,
			Limb:      string(ev.Limb),
			Rep:       ev.Rep,
			Signal:    ev.Signal,
			Frame:     a.frame,
			CreatedAt: at,
		})
		if err != nil {
			log.Error().Err(err).Str("session", a.sessionID).Msg("failed to store rep event")
		}
	}

	err := a.config.Store.Sessions().UpdateCounts(a.sessionID, snap.Reps(rep.LimbLeft), snap.Reps(rep.LimbRight))
	if err != nil {
		log.Error().Err(err).Str("session", a.sessionID).Msg("failed to update session counts")
	}
}

// publish delivers snap to every subscriber without blocking.
func (a *App) publish(snap rep.Snapshot) {
	for _, ch := range a.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// changed reports whether anything a viewer would see differs between two
// snapshots. Signals move on every frame and are ignored.
func changed(prev, next rep.Snapshot) bool {
	if prev.Detected != next.Detected || prev.AnyContracted != next.AnyContracted {
		return true
	}
	if len(prev.Limbs) != len(next.Limbs) {
		return true
	}
	for i := range prev.Limbs {
		if prev.Limbs[i].LimbState != next.Limbs[i].LimbState {
			return true
		}
	}
	return false
}
