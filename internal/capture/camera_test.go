package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestNewCamera(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantFPS int
	}{
		{
			name:    "zero config uses defaults",
			config:  Config{},
			wantFPS: DefaultFPS,
		},
		{
			name:    "default config",
			config:  DefaultConfig(),
			wantFPS: DefaultFPS,
		},
		{
			name:    "explicit fps",
			config:  Config{DeviceID: 2, FPS: 30},
			wantFPS: 30,
		},
		{
			name:    "negative fps uses default",
			config:  Config{FPS: -1},
			wantFPS: DefaultFPS,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.config)
			require.NotNil(t, cam)

			assert.Equal(t, tt.wantFPS, cam.FPS())
			assert.False(t, cam.IsOpen(), "camera should not be running initially")
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 0, cfg.DeviceID)
	assert.Equal(t, DefaultWidth, cfg.Width)
	assert.Equal(t, DefaultHeight, cfg.Height)
	assert.True(t, cfg.Mirror, "selfie view is mirrored by default")
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(DefaultConfig())

	tests := []struct {
		name    string
		fps     int
		wantFPS int
	}{
		{name: "set to 10", fps: 10, wantFPS: 10},
		{name: "set to 30", fps: 30, wantFPS: 30},
		{name: "set to 1", fps: 1, wantFPS: 1},
		{name: "set to 0 should keep previous", fps: 0, wantFPS: 1},
		{name: "set to negative should keep previous", fps: -5, wantFPS: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam.SetFPS(tt.fps)
			assert.Equal(t, tt.wantFPS, cam.FPS())
		})
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(DefaultConfig())

	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}
	assert.True(t, cam.IsOpen())

	mat, err := cam.ReadFrame()
	if assert.NoError(t, err) {
		require.NotNil(t, mat)
		assert.False(t, mat.Empty())
		if mat.Cols() != DefaultWidth || mat.Rows() != DefaultHeight {
			t.Logf("Frame dimensions: %dx%d (camera may not support %dx%d)", mat.Cols(), mat.Rows(), DefaultWidth, DefaultHeight)
		}
		mat.Close()
	}

	assert.NoError(t, cam.Close())
	assert.False(t, cam.IsOpen())
}

func TestCamera_ReadFrame_NotOpened(t *testing.T) {
	cam := NewCamera(DefaultConfig())

	_, err := cam.ReadFrame()
	assert.ErrorIs(t, err, ErrCameraNotOpen)
}

func TestCamera_Close_NotOpened(t *testing.T) {
	cam := NewCamera(DefaultConfig())
	assert.NoError(t, cam.Close())
}

func TestMirror(t *testing.T) {
	frame := gocv.NewMatWithSize(1, 3, gocv.MatTypeCV8UC1)
	defer frame.Close()
	frame.SetUCharAt(0, 0, 10)
	frame.SetUCharAt(0, 1, 20)
	frame.SetUCharAt(0, 2, 30)

	Mirror(&frame)

	assert.Equal(t, uint8(30), frame.GetUCharAt(0, 0))
	assert.Equal(t, uint8(20), frame.GetUCharAt(0, 1))
	assert.Equal(t, uint8(10), frame.GetUCharAt(0, 2))
}

func TestMirror_IgnoresEmpty(t *testing.T) {
	Mirror(nil)

	empty := gocv.NewMat()
	defer empty.Close()
	Mirror(&empty)
	assert.True(t, empty.Empty())
}
