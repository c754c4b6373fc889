package interpreter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/milthm/autogarden/extension"
	"github.com/milthm/autogarden/model/types"
	dao "github.com/milthm/autogarden/service/dao/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWorkflows materialises the supplied documents under a temp root and
// returns a document service rooted there.
func writeWorkflows(t *testing.T, documents map[string]string) *dao.Service {
	t.Helper()
	root := t.TempDir()
	for name, content := range documents {
		location := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(location), 0o755))
		require.NoError(t, os.WriteFile(location, []byte(content), 0o644))
	}
	return dao.New(dao.WithRootURL(root))
}

// recordedSleep collects requested delays without waiting for them.
func recordedSleep(delays *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		*delays = append(*delays, d)
		return nil
	}
}

func TestService_Execute_actionRetry(t *testing.T) {
	docs := writeWorkflows(t, map[string]string{
		"flow.yml": `
steps:
  - action: flaky
    retry: 3
    wait_after: 2
`,
	})
	var attempts int32
	registry := extension.NewCapabilities()
	registry.Register("flaky", types.NewActor(func(ctx context.Context) (bool, error) {
		return atomic.AddInt32(&attempts, 1) == 3, nil
	}))

	var delays []time.Duration
	service := New(registry, docs, WithSleep(recordedSleep(&delays)))
	ok, err := service.Execute(context.Background(), "flow", nil)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 3, attempts)
	// Two inter-retry delays followed by the wait_after suspension.
	assert.Equal(t, []time.Duration{time.Second, time.Second, 2 * time.Second}, delays)
}

func TestService_Execute_retryExhaustion(t *testing.T) {
	docs := writeWorkflows(t, map[string]string{
		"flow.yml": `
steps:
  - action: never
    retry: 3
  - action: unreached
`,
	})
	var attempts, unreached int32
	registry := extension.NewCapabilities()
	registry.Register("never", types.NewActor(func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&attempts, 1)
		return false, nil
	}))
	registry.Register("unreached", types.NewActor(func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&unreached, 1)
		return true, nil
	}))

	var delays []time.Duration
	service := New(registry, docs, WithSleep(recordedSleep(&delays)))
	ok, err := service.Execute(context.Background(), "flow", nil)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 3, attempts)
	assert.Zero(t, unreached, "failure should short-circuit later steps")
}

func TestService_Execute_optional(t *testing.T) {
	testCases := []struct {
		name     string
		document string
		expect   bool
	}{
		{
			name: "optional absorbs missing capability",
			document: `
steps:
  - action: no_such_capability
    optional: true
`,
			expect: true,
		},
		{
			name: "missing capability fails without optional",
			document: `
steps:
  - action: no_such_capability
`,
			expect: false,
		},
		{
			name: "optional absorbs exhausted retries",
			document: `
steps:
  - action: panicky
    retry: 2
    optional: true
`,
			expect: true,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			docs := writeWorkflows(t, map[string]string{"flow.yml": testCase.document})
			registry := extension.NewCapabilities()
			registry.Register("panicky", types.NewActor(func(ctx context.Context) (bool, error) {
				panic("capture backend gone")
			}))
			var delays []time.Duration
			service := New(registry, docs, WithSleep(recordedSleep(&delays)))
			ok, err := service.Execute(context.Background(), "flow", nil)
			assert.NoError(t, err)
			assert.Equal(t, testCase.expect, ok)
		})
	}
}

func TestService_Execute_subWorkflowScope(t *testing.T) {
	docs := writeWorkflows(t, map[string]string{
		"parent.yml": `
steps:
  - type: workflow
    workflow: ./child
    params:
      a: 1
      b: 3
      crop: ${crop_name}
`,
		"child.yml": `
steps:
  - action: probe_a
    param: a
  - action: probe_b
    param: b
  - action: probe_c
    param: c
  - action: probe_crop
    param: crop
`,
	})
	seen := map[string]string{}
	probe := func(key string) types.Capability {
		return types.NewParamActor(func(ctx context.Context, value string) (bool, error) {
			seen[key] = value
			return true, nil
		})
	}
	registry := extension.NewCapabilities()
	registry.RegisterAll(map[string]types.Capability{
		"probe_a":    probe("a"),
		"probe_b":    probe("b"),
		"probe_c":    probe("c"),
		"probe_crop": probe("crop"),
	})

	var delays []time.Duration
	service := New(registry, docs, WithSleep(recordedSleep(&delays)))
	scope := map[string]interface{}{"a": 2, "c": "parent", "crop_name": "shuangbaomogu"}
	ok, err := service.Execute(context.Background(), "parent", scope)
	assert.NoError(t, err)
	assert.True(t, ok)
	// Step params win over parent entries; untouched parent entries flow
	// through; placeholders resolve against the parent scope.
	assert.Equal(t, "1", seen["a"])
	assert.Equal(t, "3", seen["b"])
	assert.Equal(t, "parent", seen["c"])
	assert.Equal(t, "shuangbaomogu", seen["crop"])
}

func TestService_Execute_conditionBranches(t *testing.T) {
	docs := writeWorkflows(t, map[string]string{
		"flow.yml": `
steps:
  - type: condition
    condition: gate
    on_true:
      - action: when_true
    on_false:
      - action: when_false
`,
	})
	for _, gate := range []bool{true, false} {
		var whenTrue, whenFalse int32
		registry := extension.NewCapabilities()
		registry.Register("gate", types.NewDetector(func(ctx context.Context) (bool, error) {
			return gate, nil
		}))
		registry.Register("when_true", types.NewActor(func(ctx context.Context) (bool, error) {
			atomic.AddInt32(&whenTrue, 1)
			return true, nil
		}))
		registry.Register("when_false", types.NewActor(func(ctx context.Context) (bool, error) {
			atomic.AddInt32(&whenFalse, 1)
			return true, nil
		}))

		var delays []time.Duration
		service := New(registry, docs, WithSleep(recordedSleep(&delays)))
		ok, err := service.Execute(context.Background(), "flow", nil)
		assert.NoError(t, err)
		assert.True(t, ok)
		if gate {
			assert.EqualValues(t, 1, whenTrue)
			assert.Zero(t, whenFalse)
		} else {
			assert.Zero(t, whenTrue)
			assert.EqualValues(t, 1, whenFalse)
		}
	}
}

func TestService_Execute_conditionFailures(t *testing.T) {
	docs := writeWorkflows(t, map[string]string{
		"missing.yml": `
steps:
  - type: condition
    condition: unregistered
    on_true:
      - action: branch
    on_false:
      - action: branch
`,
		"erroring.yml": `
steps:
  - type: condition
    condition: broken
    on_true:
      - action: branch
    on_false:
      - action: branch
`,
	})
	var branchRuns int32
	registry := extension.NewCapabilities()
	registry.Register("broken", types.NewDetector(func(ctx context.Context) (bool, error) {
		return false, assert.AnError
	}))
	registry.Register("branch", types.NewActor(func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&branchRuns, 1)
		return true, nil
	}))

	var delays []time.Duration
	service := New(registry, docs, WithSleep(recordedSleep(&delays)))
	for _, name := range []string{"missing", "erroring"} {
		ok, err := service.Execute(context.Background(), name, nil)
		assert.NoError(t, err, name)
		assert.False(t, ok, name)
	}
	assert.Zero(t, branchRuns, "no branch should run when the predicate cannot be evaluated")
}

func TestService_Execute_eventLoopBounded(t *testing.T) {
	docs := writeWorkflows(t, map[string]string{
		"flow.yml": `
steps:
  - type: event_loop
    name: monitor
    interval: 5
    handlers:
      - name: always
        actions:
          - action: tick
            wait_after: 0
      - name: guarded
        condition: ready
        actions:
          - action: collect
            wait_after: 0
`,
	})
	var ticks, checks, collects int32
	registry := extension.NewCapabilities()
	registry.Register("tick", types.NewActor(func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&ticks, 1)
		return true, nil
	}))
	registry.Register("ready", types.NewDetector(func(ctx context.Context) (bool, error) {
		// Trigger on the second pass only.
		return atomic.AddInt32(&checks, 1) == 2, nil
	}))
	registry.Register("collect", types.NewActor(func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&collects, 1)
		return true, nil
	}))

	var delays []time.Duration
	service := New(registry, docs, WithSleep(recordedSleep(&delays)), WithMaxLoopIterations(3))
	ok, err := service.Execute(context.Background(), "flow", nil)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 3, ticks, "handler without predicate fires every pass")
	assert.EqualValues(t, 3, checks)
	assert.EqualValues(t, 1, collects)
	// The interval is a delay after each full pass.
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, delays)
}

func TestService_Execute_eventLoopHandlerIndependence(t *testing.T) {
	docs := writeWorkflows(t, map[string]string{
		"flow.yml": `
steps:
  - type: event_loop
    interval: 1
    handlers:
      - name: failing
        actions:
          - action: always_fails
            wait_after: 0
      - name: following
        actions:
          - action: follower
            wait_after: 0
`,
	})
	var followerRuns int32
	registry := extension.NewCapabilities()
	registry.Register("always_fails", types.NewActor(func(ctx context.Context) (bool, error) {
		return false, nil
	}))
	registry.Register("follower", types.NewActor(func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&followerRuns, 1)
		return true, nil
	}))

	var delays []time.Duration
	service := New(registry, docs, WithSleep(recordedSleep(&delays)), WithMaxLoopIterations(2))
	ok, err := service.Execute(context.Background(), "flow", nil)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 2, followerRuns, "a failing handler must not starve later handlers")
}

func TestService_Execute_loopIntervalOverride(t *testing.T) {
	docs := writeWorkflows(t, map[string]string{
		"flow.yml": `
steps:
  - type: event_loop
    interval: 60
    handlers:
      - name: noop
        actions: []
`,
	})
	var delays []time.Duration
	service := New(extension.NewCapabilities(), docs,
		WithSleep(recordedSleep(&delays)),
		WithMaxLoopIterations(1),
		WithLoopInterval(250*time.Millisecond))
	ok, err := service.Execute(context.Background(), "flow", nil)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, delays)
}

func TestService_Execute_cancellation(t *testing.T) {
	docs := writeWorkflows(t, map[string]string{
		"flow.yml": `
steps:
  - type: event_loop
    interval: 1
    handlers:
      - name: stopper
        actions:
          - action: stop
            wait_after: 0
`,
	})
	ctx, cancel := context.WithCancel(context.Background())
	registry := extension.NewCapabilities()
	registry.Register("stop", types.NewActor(func(ctx context.Context) (bool, error) {
		cancel()
		return true, nil
	}))

	service := New(registry, docs, WithSleep(func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	}))
	ok, err := service.Execute(ctx, "flow", nil)
	assert.NoError(t, err, "cancellation is a clean stop, not a failure")
	assert.True(t, ok)
	assert.Zero(t, service.StackDepth())
}

func TestService_Execute_noSteps(t *testing.T) {
	docs := writeWorkflows(t, map[string]string{
		"empty.yml": `
description: document without a steps node
`,
		"vacuous.yml": `
steps: []
`,
	})
	var reported bytes.Buffer
	var delays []time.Duration
	service := New(extension.NewCapabilities(), docs,
		WithSleep(recordedSleep(&delays)), WithReporter(&reported))

	ok, err := service.Execute(context.Background(), "empty", nil)
	assert.NoError(t, err, "missing steps is a content error, not a load error")
	assert.False(t, ok)
	assert.Contains(t, reported.String(), "no steps found")

	ok, err = service.Execute(context.Background(), "vacuous", nil)
	assert.NoError(t, err)
	assert.True(t, ok, "an empty step sequence is vacuously successful")
}

func TestService_Execute_loadErrorsPropagate(t *testing.T) {
	docs := writeWorkflows(t, map[string]string{})
	var delays []time.Duration
	service := New(extension.NewCapabilities(), docs, WithSleep(recordedSleep(&delays)))
	ok, err := service.Execute(context.Background(), "no_such_flow", nil)
	assert.ErrorIs(t, err, dao.ErrNotFound)
	assert.False(t, ok)
	assert.Zero(t, service.StackDepth())
}

func TestService_Execute_relativeReferences(t *testing.T) {
	docs := writeWorkflows(t, map[string]string{
		"outer.yml": `
steps:
  - type: workflow
    workflow: ./common/inner
`,
		"common/inner.yml": `
steps:
  - type: workflow
    workflow: ./sibling
`,
		"common/sibling.yml": `
steps:
  - action: leaf
    wait_after: 0
`,
	})
	var leafRuns int32
	registry := extension.NewCapabilities()
	registry.Register("leaf", types.NewActor(func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&leafRuns, 1)
		return true, nil
	}))

	var delays []time.Duration
	service := New(registry, docs, WithSleep(recordedSleep(&delays)))
	ok, err := service.Execute(context.Background(), "outer", nil)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 1, leafRuns)
	assert.Zero(t, service.StackDepth(), "the execution stack must unwind fully")
}
