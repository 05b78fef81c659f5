package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/curlcount/internal/capture"
	"github.com/ayusman/curlcount/internal/detector"
	"github.com/ayusman/curlcount/internal/pose"
	"github.com/ayusman/curlcount/internal/rep"
	"github.com/ayusman/curlcount/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestApp(t *testing.T, st *store.Store) *App {
	t.Helper()
	a, err := New(Config{
		Store:    st,
		Camera:   capture.DefaultConfig(),
		Detector: detector.DefaultConfig(),
		Session:  rep.DefaultSessionConfig(rep.ModeAngle),
	})
	require.NoError(t, err)
	a.SetDetector(detector.NewMockDetector())
	return a
}

func TestNew_RejectsInvalidSession(t *testing.T) {
	cfg := rep.DefaultSessionConfig(rep.ModeAngle)
	cfg.Mode = "hop"

	_, err := New(Config{Session: cfg})
	assert.ErrorIs(t, err, rep.ErrInvalidMode)
}

func TestNew_WithoutStore(t *testing.T) {
	a := newTestApp(t, nil)

	assert.Empty(t, a.SessionID())
	assert.True(t, a.IsEnabled())
	assert.Equal(t, rep.ModeAngle, a.Mode())
	assert.Equal(t, []rep.Limb{rep.LimbLeft, rep.LimbRight}, a.Limbs())
	assert.Equal(t, "Arm Curls: 0", a.Snapshot().Text())

	a.ProcessLandmarks(pose.ArmsCurledLandmarks(), time.Now())
	assert.Equal(t, uint(2), a.Snapshot().Total())
	assert.NoError(t, a.Close())
}

func TestApp_ProcessLandmarksPersistsReps(t *testing.T) {
	st := newTestStore(t)
	a := newTestApp(t, st)
	defer a.Close()

	id := a.SessionID()
	require.NotEmpty(t, id)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a.ProcessLandmarks(pose.ArmsExtendedLandmarks(), at)
	a.ProcessLandmarks(pose.ArmPose(90, 175), at.Add(time.Second))
	a.ProcessLandmarks(nil, at.Add(2*time.Second))
	snap := a.ProcessLandmarks(pose.ArmsCurledLandmarks(), at.Add(3*time.Second))

	assert.Equal(t, uint(1), snap.Reps(rep.LimbLeft))
	assert.Equal(t, uint(1), snap.Reps(rep.LimbRight))
	assert.Equal(t, 4, a.Frames())

	events, err := st.Events().ListBySession(id)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "left", events[0].Limb)
	assert.Equal(t, 2, events[0].Frame)
	assert.Equal(t, "right", events[1].Limb)
	assert.Equal(t, 4, events[1].Frame)
	assert.True(t, events[1].CreatedAt.Equal(at.Add(3*time.Second)))

	sess, err := st.Sessions().GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, "angle", sess.Mode)
	assert.Equal(t, 160.0, sess.Threshold)
	assert.Equal(t, uint(1), sess.LeftReps)
	assert.Equal(t, uint(1), sess.RightReps)
	assert.True(t, sess.Active())
}

func TestApp_Reset(t *testing.T) {
	st := newTestStore(t)
	a := newTestApp(t, st)
	defer a.Close()

	first := a.SessionID()
	a.ProcessLandmarks(pose.ArmsCurledLandmarks(), time.Now())

	require.NoError(t, a.Reset())

	assert.NotEqual(t, first, a.SessionID())
	assert.Equal(t, uint(0), a.Snapshot().Total())
	assert.Zero(t, a.Frames())

	old, err := st.Sessions().GetByID(first)
	require.NoError(t, err)
	assert.False(t, old.Active())
	assert.Equal(t, uint(1), old.LeftReps)
	assert.Equal(t, uint(1), old.RightReps)

	// Still curled after the reset: the first frame is a new rising edge.
	snap := a.ProcessLandmarks(pose.ArmsCurledLandmarks(), time.Now())
	assert.Equal(t, uint(2), snap.Total())

	sessions, err := st.Sessions().List()
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestApp_ResetFailureDetachesFinishedSession(t *testing.T) {
	st := newTestStore(t)
	a := newTestApp(t, st)
	defer a.Close()

	first := a.SessionID()
	a.ProcessLandmarks(pose.ArmPose(90, 175), time.Now())

	// Finishing the old session works; opening the new one does not.
	_, err := st.DB().Exec(`CREATE TRIGGER no_new_sessions BEFORE INSERT ON sessions
		BEGIN SELECT RAISE(ABORT, 'sessions are read only'); END`)
	require.NoError(t, err)

	require.Error(t, a.Reset())
	assert.Empty(t, a.SessionID())

	a.ProcessLandmarks(pose.ArmsExtendedLandmarks(), time.Now())
	snap := a.ProcessLandmarks(pose.ArmsCurledLandmarks(), time.Now())
	require.Equal(t, uint(2), snap.Total())

	old, err := st.Sessions().GetByID(first)
	require.NoError(t, err)
	assert.False(t, old.Active())
	assert.Equal(t, uint(1), old.LeftReps, "finished totals are kept")
	assert.Equal(t, uint(0), old.RightReps)

	events, err := st.Events().ListBySession(first)
	require.NoError(t, err)
	assert.Len(t, events, 1, "no events are added to a finished session")
}

func TestApp_Close_FinishesSession(t *testing.T) {
	st := newTestStore(t)
	a := newTestApp(t, st)
	id := a.SessionID()

	a.ProcessLandmarks(pose.ArmPose(90, 175), time.Now())
	require.NoError(t, a.Close())

	sess, err := st.Sessions().GetByID(id)
	require.NoError(t, err)
	assert.False(t, sess.Active())
	assert.Equal(t, uint(1), sess.LeftReps)
	assert.Equal(t, uint(0), sess.RightReps)
}

func TestApp_SubscribeReceivesChanges(t *testing.T) {
	a := newTestApp(t, nil)
	defer a.Close()

	ch := a.Subscribe()

	a.ProcessLandmarks(pose.ArmsExtendedLandmarks(), time.Now())
	// Same state again: signals differ only by nothing visible.
	a.ProcessLandmarks(pose.ArmsExtendedLandmarks(), time.Now())
	a.ProcessLandmarks(pose.ArmPose(90, 175), time.Now())

	first := <-ch
	assert.True(t, first.Detected)
	assert.Equal(t, uint(0), first.Total())

	second := <-ch
	assert.Equal(t, uint(1), second.Reps(rep.LimbLeft))

	select {
	case extra := <-ch:
		t.Fatalf("unexpected snapshot %+v", extra)
	default:
	}

	a.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
}

func TestApp_SlowSubscriberDoesNotBlock(t *testing.T) {
	a := newTestApp(t, nil)
	defer a.Close()

	a.Subscribe()
	for i := 0; i < 4*subscriberBuffer; i++ {
		if i%2 == 0 {
			a.ProcessLandmarks(pose.ArmsCurledLandmarks(), time.Now())
		} else {
			a.ProcessLandmarks(pose.ArmsExtendedLandmarks(), time.Now())
		}
	}

	assert.Equal(t, uint(4*subscriberBuffer), a.Snapshot().Total())
}

func TestApp_PipelineCountsFromCamera(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	a := newTestApp(t, nil)
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.SetFPS(100)
	a.SetCamera(cam)

	mock := detector.NewMockDetector()
	mock.SetSequence([]*pose.Landmarks{
		pose.ArmsExtendedLandmarks(),
		pose.ArmsCurledLandmarks(),
		nil,
		pose.ArmsCurledLandmarks(),
		pose.ArmsExtendedLandmarks(),
		pose.ArmsCurledLandmarks(),
	}, false)
	a.SetDetector(mock)

	require.NoError(t, a.Start())
	assert.True(t, a.IsRunning())
	require.NoError(t, a.Start(), "second start is a no-op")

	require.Eventually(t, func() bool {
		return mock.Calls() >= 6
	}, 5*time.Second, 10*time.Millisecond)

	a.Stop()
	assert.False(t, a.IsRunning())
	assert.False(t, cam.IsOpen())

	snap := a.Snapshot()
	assert.Equal(t, uint(2), snap.Reps(rep.LimbLeft))
	assert.Equal(t, uint(2), snap.Reps(rep.LimbRight))

	jpeg := a.LatestFrameJPEG()
	require.NotEmpty(t, jpeg)
	assert.Equal(t, []byte{0xFF, 0xD8}, jpeg[:2], "JPEG start-of-image marker")

	require.NoError(t, a.Close())
}

func TestApp_PausedPipelineSkipsFrames(t *testing.T) {
	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()

	a := newTestApp(t, nil)
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.SetFPS(100)
	a.SetCamera(cam)
	a.SetEnabled(false)

	require.NoError(t, a.Start())
	time.Sleep(100 * time.Millisecond)
	a.Stop()

	assert.Zero(t, cam.Reads())
	assert.Zero(t, a.Frames())
	assert.Nil(t, a.LatestFrameJPEG())
}

func newMotionApp(t *testing.T) *App {
	t.Helper()
	a, err := New(Config{
		Camera:          capture.DefaultConfig(),
		Detector:        detector.DefaultConfig(),
		Session:         rep.DefaultSessionConfig(rep.ModeAngle),
		MotionThreshold: 1.0,
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestApp_StillFramesSkipDetection(t *testing.T) {
	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()

	a := newMotionApp(t)
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.SetFPS(100)
	a.SetCamera(cam)

	mock := detector.NewMockDetector()
	mock.SetPose(pose.ArmsCurledLandmarks())
	a.SetDetector(mock)

	before := a.Snapshot()
	require.NoError(t, a.Start())
	require.Eventually(t, func() bool {
		return cam.Reads() >= 10
	}, 5*time.Second, 10*time.Millisecond)
	a.Stop()

	assert.Zero(t, mock.Calls(), "no pose detection on a still picture")
	assert.Zero(t, a.Frames())
	assert.Equal(t, before, a.Snapshot())
	assert.NotEmpty(t, a.LatestFrameJPEG(), "still frames are still streamed")
}

func TestApp_MovingFramesAreCounted(t *testing.T) {
	black := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	a := newMotionApp(t)
	cam := capture.NewMockCamera([]*gocv.Mat{&black, &white}, true)
	cam.SetFPS(100)
	a.SetCamera(cam)

	mock := detector.NewMockDetector()
	mock.SetPose(pose.ArmsCurledLandmarks())
	a.SetDetector(mock)

	require.NoError(t, a.Start())
	require.Eventually(t, func() bool {
		return cam.Reads() >= 6
	}, 5*time.Second, 10*time.Millisecond)
	a.Stop()

	// The first frame only sets the motion baseline.
	assert.Equal(t, cam.Reads()-1, mock.Calls())
	assert.Equal(t, mock.Calls(), a.Frames())
	assert.Equal(t, uint(2), a.Snapshot().Total(), "held curl is one rep per arm")
}

func TestChanged(t *testing.T) {
	base := rep.Snapshot{
		Detected: true,
		Limbs:    []rep.LimbSnapshot{{Limb: rep.LimbLeft, Signal: 170}},
	}

	signalOnly := base
	signalOnly.Limbs = []rep.LimbSnapshot{{Limb: rep.LimbLeft, Signal: 165}}
	assert.False(t, changed(base, signalOnly))

	contracted := base
	contracted.Limbs = []rep.LimbSnapshot{{Limb: rep.LimbLeft, LimbState: rep.LimbState{Contracted: true, Reps: 1}}}
	assert.True(t, changed(base, contracted))

	lost := base
	lost.Detected = false
	assert.True(t, changed(base, lost))
}
