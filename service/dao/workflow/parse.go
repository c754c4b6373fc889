package workflow

import (
	"fmt"
	"strconv"
	"time"

	"github.com/milthm/autogarden/internal/yml"
	"github.com/milthm/autogarden/model"
	"gopkg.in/yaml.v3"
)

// DecodeYAML decodes a workflow document from YAML bytes. A document
// without a steps node is valid at this level; the engine treats it as a
// content error when asked to execute it.
func (s *Service) DecodeYAML(encoded []byte) (*model.Workflow, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(encoded, &node); err != nil {
		return nil, err
	}
	root := yml.Root(&node)
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("document root should be a mapping")
	}
	workflow := &model.Workflow{}
	err := root.Pairs(func(key string, valueNode *yml.Node) error {
		switch key {
		case "name":
			workflow.Name = valueNode.Text()
		case "description":
			workflow.Description = valueNode.Text()
		case s.stepsNodeName:
			steps, err := parseSteps(valueNode)
			if err != nil {
				return err
			}
			workflow.Steps = steps
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return workflow, nil
}

// parseSteps converts a sequence node into an ordered step list. The
// returned slice is non-nil even for an empty sequence so that a present
// but empty steps node is distinguishable from an absent one.
func parseSteps(node *yml.Node) ([]*model.Step, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("steps node should be a sequence")
	}
	steps := make([]*model.Step, 0, len(node.Content))
	err := node.Items(func(index int, stepNode *yml.Node) error {
		step, err := parseStep(stepNode)
		if err != nil {
			return fmt.Errorf("step[%d]: %w", index, err)
		}
		steps = append(steps, step)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func parseStep(node *yml.Node) (*model.Step, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("step node should be a mapping")
	}
	kind := model.KindAction
	if typeNode := node.Lookup("type"); typeNode != nil {
		kind = typeNode.Text()
	}
	switch kind {
	case model.KindAction:
		return parseActionStep(node)
	case model.KindSubWorkflow:
		return parseSubWorkflowStep(node)
	case model.KindCondition:
		return parseConditionStep(node)
	case model.KindEventLoop:
		return parseEventLoopStep(node)
	default:
		return nil, fmt.Errorf("unknown step type: %v", kind)
	}
}

func parseActionStep(node *yml.Node) (*model.Step, error) {
	name := node.Lookup("action").Text()
	if name == "" {
		return nil, fmt.Errorf("action step requires an action name")
	}
	step := model.NewActionStep(name)
	step.Description = node.Lookup("description").Text()
	step.ParamKey = node.Lookup("param").Text()
	step.Optional = node.Lookup("optional").Bool(false)
	if retry := node.Lookup("retry").Int(1); retry > 1 {
		step.Retry = retry
	}
	wait, err := parseDuration(node.Lookup("wait_after"), model.DefaultWaitAfter)
	if err != nil {
		return nil, fmt.Errorf("invalid wait_after: %w", err)
	}
	step.WaitAfter = wait
	return step, nil
}

func parseSubWorkflowStep(node *yml.Node) (*model.Step, error) {
	ref := node.Lookup("workflow").Text()
	if ref == "" {
		return nil, fmt.Errorf("workflow step requires a workflow reference")
	}
	step := &model.Step{
		Kind:        model.KindSubWorkflow,
		WorkflowRef: ref,
		Description: node.Lookup("description").Text(),
	}
	if paramsNode := node.Lookup("params"); paramsNode != nil {
		params, ok := paramsNode.Interface().(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("params node should be a mapping")
		}
		step.Params = params
	}
	return step, nil
}

func parseConditionStep(node *yml.Node) (*model.Step, error) {
	predicate := node.Lookup("condition").Text()
	if predicate == "" {
		return nil, fmt.Errorf("condition step requires a condition name")
	}
	step := &model.Step{
		Kind:        model.KindCondition,
		Predicate:   predicate,
		Description: node.Lookup("description").Text(),
	}
	var err error
	if step.OnTrue, err = parseBranch(node.Lookup("on_true")); err != nil {
		return nil, fmt.Errorf("on_true: %w", err)
	}
	if step.OnFalse, err = parseBranch(node.Lookup("on_false")); err != nil {
		return nil, fmt.Errorf("on_false: %w", err)
	}
	return step, nil
}

// parseBranch tolerates an absent branch; it is vacuously successful at
// execution time.
func parseBranch(node *yml.Node) ([]*model.Step, error) {
	if node == nil {
		return nil, nil
	}
	return parseSteps(node)
}

func parseEventLoopStep(node *yml.Node) (*model.Step, error) {
	step := &model.Step{
		Kind: model.KindEventLoop,
		Name: node.Lookup("name").Text(),
	}
	interval, err := parseDuration(node.Lookup("interval"), model.DefaultLoopInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid interval: %w", err)
	}
	step.Interval = interval
	if handlersNode := node.Lookup("handlers"); handlersNode != nil {
		if handlersNode.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("handlers node should be a sequence")
		}
		err = handlersNode.Items(func(index int, handlerNode *yml.Node) error {
			handler, err := parseHandler(handlerNode)
			if err != nil {
				return fmt.Errorf("handler[%d]: %w", index, err)
			}
			step.Handlers = append(step.Handlers, handler)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return step, nil
}

func parseHandler(node *yml.Node) (*model.Handler, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("handler node should be a mapping")
	}
	handler := &model.Handler{
		Name:      node.Lookup("name").Text(),
		Predicate: node.Lookup("condition").Text(),
	}
	if actionsNode := node.Lookup("actions"); actionsNode != nil {
		actions, err := parseSteps(actionsNode)
		if err != nil {
			return nil, err
		}
		handler.Actions = actions
	}
	return handler, nil
}

// parseDuration accepts either a bare number of seconds (the original
// document convention) or a Go duration string such as "500ms".
func parseDuration(node *yml.Node, defaultValue time.Duration) (time.Duration, error) {
	text := node.Text()
	if text == "" {
		return defaultValue, nil
	}
	if seconds, err := strconv.ParseFloat(text, 64); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(text)
	if err != nil {
		return 0, err
	}
	return d, nil
}
