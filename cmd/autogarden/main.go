// Command autogarden drives the in-game gardening automation: navigate to
// the garden, plant a crop and keep harvesting until interrupted.
//
// Usage:
//
//	autogarden auto <crop>        run the complete auto garden workflow
//	autogarden plant <crop>       plant a specific crop
//	autogarden harvest            run the harvest workflow once
//	autogarden monitor [interval] run the harvest monitoring loop
//	autogarden run <workflow>     run an arbitrary workflow document
//	autogarden test <capability>  invoke a single capability
//	autogarden list               list registered capabilities
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/milthm/autogarden"
	"github.com/milthm/autogarden/extension"
	"github.com/milthm/autogarden/service/catalog"
)

func main() {
	os.Exit(run())
}

func run() int {
	config := autogarden.DefaultConfig()
	flag.StringVar(&config.WorkflowsURL, "workflows", config.WorkflowsURL, "workflow documents root")
	flag.StringVar(&config.AssetsURL, "assets", config.AssetsURL, "template images root")
	flag.StringVar(&config.RunLogDSN, "runlog", config.RunLogDSN, "run log database, empty disables")
	flag.Float64Var(&config.Threshold, "threshold", config.Threshold, "template match threshold override")
	flag.StringVar(&config.Shell.CaptureCmd, "capture-cmd", os.Getenv("AUTOGARDEN_CAPTURE_CMD"), "window capture command, %s is the output path")
	flag.StringVar(&config.Shell.ClickCmd, "click-cmd", os.Getenv("AUTOGARDEN_CLICK_CMD"), "click command, %d %d are the coordinates")
	flag.StringVar(&config.Shell.FocusCmd, "focus-cmd", os.Getenv("AUTOGARDEN_FOCUS_CMD"), "optional window focus command")
	traceFile := flag.String("trace", "", "write execution traces to this file")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 || args[0] == "help" {
		usage()
		return 0
	}
	// Listing needs no window, so it works before any device is configured.
	if args[0] == "list" {
		registry := extension.NewCapabilities()
		catalog.New(nil, config.AssetsURL).Register(registry)
		for _, name := range registry.Names() {
			fmt.Println(name)
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	options := []autogarden.Option{autogarden.WithConfig(config)}
	if *traceFile != "" {
		options = append(options, autogarden.WithTracing(*traceFile))
	}
	service, err := autogarden.New(ctx, options...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "autogarden: %v\n", err)
		return 1
	}
	defer func() { _ = service.Close() }()

	ok, err := dispatch(ctx, service, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "autogarden: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "autogarden: workflow did not complete")
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, service *autogarden.Service, args []string) (bool, error) {
	switch command := args[0]; command {
	case "auto":
		crop := ""
		if len(args) > 1 {
			crop = args[1]
		}
		if crop == "" {
			return false, fmt.Errorf("usage: autogarden auto <crop>")
		}
		return service.Execute(ctx, "auto_garden", map[string]interface{}{"crop_name": crop})

	case "plant":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: autogarden plant <crop>")
		}
		return service.Plant(ctx, args[1])

	case "harvest":
		return service.Harvest(ctx)

	case "monitor":
		var interval time.Duration
		if len(args) > 1 {
			seconds, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return false, fmt.Errorf("invalid interval %q", args[1])
			}
			interval = time.Duration(seconds * float64(time.Second))
		}
		return service.Monitor(ctx, interval)

	case "run":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: autogarden run <workflow> [key=value ...]")
		}
		var params map[string]interface{}
		for _, arg := range args[2:] {
			key, value, ok := strings.Cut(arg, "=")
			if !ok {
				return false, fmt.Errorf("invalid parameter %q, expected key=value", arg)
			}
			if params == nil {
				params = map[string]interface{}{}
			}
			params[key] = value
		}
		return service.Execute(ctx, args[1], params)

	case "test":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: autogarden test <capability|template.png> [arg]")
		}
		// A path argument tests the raw template; anything else names a
		// registered capability.
		if strings.ContainsAny(args[1], "/\\") || filepath.Ext(args[1]) != "" {
			return service.TestTemplate(ctx, args[1])
		}
		return service.TestCapability(ctx, args[1], args[2:]...)

	default:
		return false, fmt.Errorf("unknown command %q, run 'autogarden help'", command)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `autogarden - in-game gardening automation

Usage:
  autogarden [flags] <command> [args]

Commands:
  auto <crop>         navigate to the garden, plant the crop and monitor harvests
  plant <crop>        plant a specific crop
  harvest             run the harvest workflow once
  monitor [interval]  poll for ready harvests, interval in seconds (default 10)
  run <workflow> [k=v ...]
                      run an arbitrary workflow document by name
  test <target>       invoke a capability by name, or click a template
                      image given its path, e.g. assets/button/shouhuo.png
  list                list registered capabilities
  help                show this message

Flags:
`)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
The capture and click commands may also be supplied through the
AUTOGARDEN_CAPTURE_CMD, AUTOGARDEN_CLICK_CMD and AUTOGARDEN_FOCUS_CMD
environment variables, e.g.:

  AUTOGARDEN_CAPTURE_CMD='screencapture -x %%s'
  AUTOGARDEN_CLICK_CMD='cliclick c:%%d,%%d'
`)
}
