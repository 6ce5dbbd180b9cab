package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/go-go-golems/agentchain/pkg/events"
	"github.com/go-go-golems/agentchain/pkg/turns/serde"
	"github.com/go-go-golems/agentchain/pkg/workflow"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

type runFlags struct {
	inputs        []string
	inputFile     string
	studentID     string
	transcriptDir string
	echoEvents    bool
	rawEvents     bool
}

// batchFile is the shape of --input-file.
type batchFile struct {
	Inputs []workflow.Input `yaml:"inputs"`
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the workflow on one or more inputs and print the results as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runWorkflow(ctx, f, args)
		},
	}
	cmd.Flags().StringArrayVarP(&f.inputs, "input", "i", nil, "Input text (repeatable, one run per input)")
	cmd.Flags().StringVar(&f.inputFile, "input-file", "", "YAML file with an inputs list")
	cmd.Flags().StringVar(&f.studentID, "student-id", "", "Student id seeding the workflow state")
	cmd.Flags().StringVar(&f.transcriptDir, "transcript-dir", "", "Write each run's history to <dir>/<run_id>.yaml")
	cmd.Flags().BoolVar(&f.echoEvents, "echo-events", false, "Print workflow events to stderr")
	cmd.Flags().BoolVar(&f.rawEvents, "raw-events", false, "Print workflow events as JSON instead of a summary")
	return cmd
}

func collectInputs(f *runFlags, args []string) ([]workflow.Input, error) {
	var ret []workflow.Input
	var sid *string
	if f.studentID != "" {
		sid = &f.studentID
	}
	for _, in := range append(append([]string{}, f.inputs...), args...) {
		ret = append(ret, workflow.Input{InputAsText: in, StudentID: sid})
	}
	if f.inputFile != "" {
		b, err := os.ReadFile(f.inputFile)
		if err != nil {
			return nil, err
		}
		var bf batchFile
		if err := yaml.Unmarshal(b, &bf); err != nil {
			return nil, errors.Wrapf(err, "parse %s", f.inputFile)
		}
		ret = append(ret, bf.Inputs...)
	}
	if len(ret) == 0 {
		return nil, errors.New("no input given, use --input, --input-file or a positional argument")
	}
	return ret, nil
}

// backgroundRouter is the part of events.EventRouter the run command drives.
type backgroundRouter interface {
	Run(ctx context.Context) error
	Running() chan struct{}
}

// startRouter runs r in eg and waits until it is running, or until it failed
// or ctx ended before getting there.
func startRouter(ctx context.Context, eg *errgroup.Group, r backgroundRouter) error {
	done := make(chan struct{})
	eg.Go(func() error {
		defer close(done)
		return r.Run(ctx)
	})
	select {
	case <-r.Running():
		return nil
	case <-done:
	case <-ctx.Done():
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.New("event router stopped before it was running")
}

func runWorkflow(ctx context.Context, f *runFlags, args []string) error {
	inputs, err := collectInputs(f, args)
	if err != nil {
		return err
	}
	ss, err := loadSettings()
	if err != nil {
		return err
	}

	var opts []workflow.Option
	var router *events.EventRouter
	if f.echoEvents {
		router, err = events.NewEventRouter(
			events.WithLogger(events.NewWatermillLogger(log.Logger)),
			events.WithVerbose(f.rawEvents),
		)
		if err != nil {
			return err
		}
		handler := events.StepPrinterFunc(os.Stderr)
		if f.rawEvents {
			handler = router.DumpRawEvents(os.Stderr)
		}
		router.AddHandler("printer", events.TopicWorkflow, handler)
		opts = append(opts, workflow.WithEventSink(router.Sink()))
	}

	w, err := buildWorkflow(ss, nil, opts...)
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)
	routerCtx, cancelRouter := context.WithCancel(ctx)
	defer cancelRouter()
	if router != nil {
		if err := startRouter(routerCtx, eg, router); err != nil {
			return err
		}
	}

	var results []*workflow.Result
	eg.Go(func() error {
		defer cancelRouter()
		if router != nil {
			defer func() { _ = router.Close() }()
		}
		var err error
		if len(inputs) == 1 {
			var res *workflow.Result
			res, err = w.Run(ctx, inputs[0])
			results = []*workflow.Result{res}
		} else {
			results, err = w.RunAll(ctx, inputs, ss.Workflow.Parallelism)
		}
		return err
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	if f.transcriptDir != "" {
		if err := os.MkdirAll(f.transcriptDir, 0o755); err != nil {
			return err
		}
		for _, res := range results {
			path := filepath.Join(f.transcriptDir, res.RunID+".yaml")
			if err := serde.SaveHistoryYAML(path, res.RunID, res.History, serde.Options{}); err != nil {
				return err
			}
			log.Info().Str("path", path).Msg("transcript written")
		}
	}

	out, err := yaml.Marshal(results)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(os.Stdout, strings.TrimSpace(string(out))+"\n")
	return err
}
