package autogarden

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/milthm/autogarden/model/types"
	"github.com/milthm/autogarden/service/vision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticDevice serves a fixed capture and records clicks.
type staticDevice struct {
	screen image.Image
	clicks int32
}

func (d *staticDevice) Capture(ctx context.Context) (image.Image, error) {
	return d.screen, nil
}

func (d *staticDevice) Click(ctx context.Context, x, y int) error {
	atomic.AddInt32(&d.clicks, 1)
	return nil
}

func (d *staticDevice) Focus(ctx context.Context) error { return nil }

func testConfig(t *testing.T, documents map[string]string) *Config {
	t.Helper()
	root := t.TempDir()
	workflowsURL := filepath.Join(root, "workflows")
	for name, content := range documents {
		location := filepath.Join(workflowsURL, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(location), 0o755))
		require.NoError(t, os.WriteFile(location, []byte(content), 0o644))
	}
	return &Config{
		WorkflowsURL: workflowsURL,
		AssetsURL:    filepath.Join(root, "assets"),
		RunLogDSN:    filepath.Join(root, "runs.db"),
	}
}

func TestService_Execute(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t, map[string]string{
		"plant_crop.yml": `
steps:
  - action: record_crop
    param: crop_name
    wait_after: 0
`,
	})
	var planted atomic.Value
	service, err := New(ctx,
		WithConfig(config),
		WithDevice(&staticDevice{}),
		WithReporter(&bytes.Buffer{}),
		WithCapability("record_crop", types.NewParamActor(func(ctx context.Context, crop string) (bool, error) {
			planted.Store(crop)
			return true, nil
		})))
	require.NoError(t, err)
	defer func() { _ = service.Close() }()

	ok, err := service.Plant(ctx, "shuangbaomogu")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "shuangbaomogu", planted.Load())

	// The run log recorded the execution.
	runs, err := service.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "plant_crop", runs[0].Workflow)
	assert.True(t, runs[0].Succeeded)
	assert.Equal(t, map[string]interface{}{"crop_name": "shuangbaomogu"}, runs[0].Params)
}

func TestService_Execute_recordsFailure(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t, map[string]string{
		"harvest.yml": `
steps:
  - action: unregistered_capability
`,
	})
	service, err := New(ctx,
		WithConfig(config),
		WithDevice(&staticDevice{}),
		WithReporter(&bytes.Buffer{}))
	require.NoError(t, err)
	defer func() { _ = service.Close() }()

	ok, err := service.Harvest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	runs, err := service.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].Succeeded)
}

func TestService_TestCapability(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t, nil)
	config.RunLogDSN = ""
	service, err := New(ctx,
		WithConfig(config),
		WithDevice(&staticDevice{}),
		WithCapability("probe", types.NewActor(func(ctx context.Context) (bool, error) {
			return true, nil
		})))
	require.NoError(t, err)
	defer func() { _ = service.Close() }()

	ok, err := service.TestCapability(ctx, "probe")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = service.TestCapability(ctx, "absent")
	assert.Error(t, err)
}

func TestService_Capabilities(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t, nil)
	config.RunLogDSN = ""
	service, err := New(ctx, WithConfig(config), WithDevice(&staticDevice{}))
	require.NoError(t, err)
	defer func() { _ = service.Close() }()

	names := service.Capabilities()
	assert.Contains(t, names, "button_shouhuo")
	assert.Contains(t, names, "check_is_in_garden")
	assert.Contains(t, names, "plant_crop")
}

func TestService_catalogAgainstCapture(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t, map[string]string{
		"harvest.yml": `
steps:
  - type: condition
    condition: check_icon_shouhuo
    on_true:
      - action: icon_shouhuo
        wait_after: 0
    on_false: []
`,
	})

	// Screen with a distinctive square; the shouhuo icon template is an
	// exact crop of it.
	screen := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			shade := uint8((x*3 + y*5) % 120)
			screen.Set(x, y, color.RGBA{R: shade, G: shade, B: shade, A: 255})
		}
	}
	for y := 12; y < 22; y++ {
		for x := 20; x < 30; x++ {
			shade := uint8(200 + (x+y)%40)
			screen.Set(x, y, color.RGBA{R: shade, G: shade, B: shade, A: 255})
		}
	}
	template := screen.SubImage(image.Rect(20, 12, 30, 22))
	location := filepath.Join(config.AssetsURL, "icon", "shouhuo.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(location), 0o755))
	file, err := os.Create(location)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, template))
	require.NoError(t, file.Close())

	device := &staticDevice{screen: screen}
	config.RunLogDSN = ""
	service, err := New(ctx,
		WithConfig(config),
		WithDevice(device),
		WithReporter(&bytes.Buffer{}))
	require.NoError(t, err)
	defer func() { _ = service.Close() }()

	ok, err := service.Harvest(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 1, device.clicks, "the icon should be clicked once")
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	missingWorkflows := DefaultConfig()
	missingWorkflows.WorkflowsURL = ""
	assert.Error(t, missingWorkflows.Validate())

	badThreshold := DefaultConfig()
	badThreshold.Threshold = 1.5
	assert.Error(t, badThreshold.Validate())

	var nilConfig *Config
	assert.NoError(t, nilConfig.Validate())
}

var _ vision.Device = (*staticDevice)(nil)
