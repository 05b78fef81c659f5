package app

import (
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/ayusman/curlcount/internal/overlay"
)

// Start opens the camera and begins the frame loop. Calling Start on a
// running App does nothing.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = 15
	}

	if a.motion != nil {
		a.motion.Reset()
	}
	a.lastMotion = time.Time{}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh, time.Second/time.Duration(fps))

	log.Info().Int("fps", fps).Msg("counting pipeline started")
	return nil
}

// Stop halts the frame loop and closes the camera.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}

	close(stopCh)
	<-doneCh

	if err := a.Camera().Close(); err != nil {
		log.Error().Err(err).Msg("error closing camera")
	}

	log.Info().Msg("counting pipeline stopped")
}

// IsRunning reports whether the frame loop is active.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// runPipeline reads one frame per tick and feeds it through detection and
// counting until stopCh closes.
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}, interval time.Duration) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.Camera().ReadFrame()
			if err != nil {
				log.Debug().Err(err).Msg("error reading frame")
				continue
			}

			a.processFrame(frame)
			frame.Close()
		}
	}
}

// processFrame runs detection on frame, counts, then draws the overlay and
// keeps the encoded result for the stream. A detector error counts as a
// frame without a pose. Still frames skip detection and counting; the last
// snapshot is drawn on them.
func (a *App) processFrame(frame *gocv.Mat) {
	now := time.Now()

	snap := a.Snapshot()
	if a.moving(frame, now) {
		lm, err := a.Detector().Detect(frame)
		if err != nil {
			log.Warn().Err(err).Msg("pose detection failed")
			lm = nil
		}
		snap = a.ProcessLandmarks(lm, now)
	}

	overlay.Draw(frame, snap)
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		log.Debug().Err(err).Msg("failed to encode frame")
		return
	}
	jpeg := slices.Clone(buf.GetBytes())
	buf.Close()

	a.mu.Lock()
	a.jpeg = jpeg
	a.mu.Unlock()
}

// moving reports whether frame should go to the detector: always without a
// motion detector, otherwise within motionHold of the last motion.
func (a *App) moving(frame *gocv.Mat, now time.Time) bool {
	if a.motion == nil {
		return true
	}
	if moved, _ := a.motion.Detect(frame); moved {
		a.lastMotion = now
	}
	return !a.lastMotion.IsZero() && now.Sub(a.lastMotion) <= motionHold
}
