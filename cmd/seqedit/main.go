// Command seqedit loads sequences and annotations, queues the edits of a
// batch plan and runs them as one transactional batch.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"seqedit/internal/blob"
	"seqedit/internal/config"
	"seqedit/internal/core"
	"seqedit/internal/fasta"
	"seqedit/internal/infra/persistence/memory"
	"seqedit/internal/log"
	"seqedit/pkg/domain"
)

var exitFunc = os.Exit

type options struct {
	configPath   string
	fastaPath    string
	featuresPath string
	planPath     string
	outputPath   string
	textfilePath string
	commit       bool
	diff         bool
	archiveQueue bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("seqedit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.configPath, "config", "", "YAML or JSON configuration file")
	fs.StringVar(&opts.fastaPath, "fasta", "", "FASTA file with the sequences to edit (plain or gzip, - for stdin)")
	fs.StringVar(&opts.featuresPath, "features", "", "JSON file mapping sequence ids to feature lists")
	fs.StringVar(&opts.planPath, "plan", "", "YAML or JSON batch plan")
	fs.StringVar(&opts.outputPath, "output", "", "write the resulting sequences as FASTA")
	fs.StringVar(&opts.textfilePath, "metrics-textfile", "", "write Prometheus metrics to this textfile after the run")
	fs.BoolVar(&opts.commit, "commit", false, "commit the working copy (overrides engine.commit_policy)")
	fs.BoolVar(&opts.diff, "diff", false, "print a unified diff of every changed sequence")
	fs.BoolVar(&opts.archiveQueue, "archive-queue", false, "archive the queue export to the blob store before running")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.fastaPath == "" || opts.planPath == "" {
		_, _ = fmt.Fprintln(stderr, "seqedit: -fasta and -plan are required")
		return 2
	}
	if err := run(ctx, opts, stdout, stderr); err != nil {
		_, _ = fmt.Fprintf(stderr, "seqedit: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) (err error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger := log.NewWithWriter(stderr, cfg.Level(), true)
	ctx = log.WithLogger(ctx, logger)

	store := memory.NewStore()
	ids, err := fasta.Load(opts.fastaPath, store)
	if err != nil {
		return fmt.Errorf("load fasta: %w", err)
	}
	logger.Info("sequences loaded", "count", len(ids), "path", opts.fastaPath)
	if opts.featuresPath != "" {
		if err := loadFeatures(opts.featuresPath, store); err != nil {
			return err
		}
	}

	var blobs blob.Store
	if opts.archiveQueue || core.StorageDriver(cfg.Checkpoints.Driver) == core.StorageBlob {
		if blobs, err = blob.Open(ctx, cfg.Blob); err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}
	}
	checkpoints, err := core.OpenCheckpointStore(ctx, cfg.Storage(blobs))
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	if closer, ok := checkpoints.(io.Closer); ok {
		defer func() {
			if cerr := closer.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
	}

	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	var prom *core.PrometheusMetricsRecorder
	switch cfg.Metrics {
	case config.MetricsExpvar:
		engineOpts = append(engineOpts, core.WithMetrics(core.NewExpvarMetricsRecorder("")))
	case config.MetricsPrometheus:
		prom = core.NewPrometheusMetricsRecorder()
		engineOpts = append(engineOpts, core.WithMetrics(prom))
	}
	commitPolicy, err := cfg.CommitPolicy()
	if err != nil {
		return err
	}
	commit := opts.commit || commitPolicy == core.CommitApply
	// The tool previews before committing, so the engine itself never commits.
	engineOpts = append(engineOpts,
		core.WithCheckpointStore(checkpoints),
		core.WithCommitPolicy(core.CommitDiscard),
	)
	svc := core.NewService(store, engineOpts...)

	steps, err := config.LoadPlan(opts.planPath)
	if err != nil {
		return err
	}
	for i, step := range steps {
		if _, err := svc.Enqueue(step.ActionKind(), step.Region(), step.Payload); err != nil {
			return fmt.Errorf("plan step %d: %w", i, err)
		}
	}
	if opts.archiveQueue {
		info, err := svc.ArchiveQueue(ctx, blobs, "")
		if err != nil {
			return err
		}
		logger.Info("queue archived", "key", info.Key, "driver", blobs.Driver())
	}

	result, runErr := svc.Run(ctx)
	if opts.diff && result.WorkingCopy != nil {
		previews, err := svc.Preview(result)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if diff, ok := previews[id]; ok {
				_, _ = fmt.Fprint(stdout, diff)
			}
		}
	}
	if runErr == nil && commit {
		if err := svc.Commit(result); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		result.Committed = true
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if prom != nil && opts.textfilePath != "" {
		if err := prom.WriteTextfile(opts.textfilePath); err != nil {
			return fmt.Errorf("write metrics textfile: %w", err)
		}
	}
	if runErr != nil {
		return runErr
	}
	if opts.outputPath != "" {
		return writeOutput(opts.outputPath, ids, result, store)
	}
	return nil
}

func loadFeatures(path string, store *memory.Store) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var features map[string][]domain.Feature
	if err := json.Unmarshal(data, &features); err != nil {
		return fmt.Errorf("parse features %s: %w", path, err)
	}
	for id, list := range features {
		if _, ok := store.SequenceLength(id); !ok {
			return fmt.Errorf("features reference unknown sequence %s", id)
		}
		store.SetFeatures(id, list)
	}
	return nil
}

// writeOutput writes the committed store, or the working copy when the run
// was not committed.
func writeOutput(path string, ids []string, result core.RunResult, store *memory.Store) error {
	seqs := store.ExportState().Sequences
	if !result.Committed && result.WorkingCopy != nil {
		seqs = result.WorkingCopy.Sequences
	}
	records := make([]fasta.Record, 0, len(ids))
	for _, id := range ids {
		seq, ok := seqs[id]
		if !ok {
			return errors.New("sequence " + id + " missing from result")
		}
		records = append(records, fasta.Record{ID: id, Seq: seq})
	}
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fasta.Write(fh, records); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}
