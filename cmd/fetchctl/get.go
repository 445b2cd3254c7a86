package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tanq16/fetchctl/internal/catalog"
	"github.com/tanq16/fetchctl/internal/engine"
	"github.com/tanq16/fetchctl/internal/httpclient"
	"github.com/tanq16/fetchctl/internal/output"
	"github.com/tanq16/fetchctl/internal/sink/filesink"
	"github.com/tanq16/fetchctl/internal/sink/s3sink"
)

// catalogMu serializes read-modify-write access to the catalog file
// across concurrent runGet calls (batch mode runs several at once),
// since catalog.Store itself has no file-level locking.
var catalogMu sync.Mutex

func recordCatalog(ctrl *engine.Controller, rawURL, outputPath string) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	store, err := catalog.Open(defaultCatalogPath())
	if err != nil {
		return
	}
	store.Record(ctrl.ID, rawURL, outputPath, ctrl.State().String(), ctrl.TotalSize(), ctrl.DownloadedRanges())
	_ = store.Save()
}

func newGetCmd() *cobra.Command {
	flags := &cliFlags{}
	cmd := &cobra.Command{
		Use:   "get [URL]",
		Short: "Download a URL, in parallel byte ranges when the server supports it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(args[0], flags, nil, true)
		},
	}
	flags.register(cmd)
	return cmd
}

func newResumeCmd() *cobra.Command {
	flags := &cliFlags{}
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "resume [catalog-id]",
		Short: "Resume a previously catalogued download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := catalog.Open(catalogPath)
			if err != nil {
				return err
			}
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid catalog id %q: %w", args[0], err)
			}
			entry, ok := store.Load(id)
			if !ok {
				return fmt.Errorf("no catalogued download with id %s", args[0])
			}
			flags.output = entry.OutputPath
			return runGet(entry.URL, flags, entry.ToDownloadedRanges(), true)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&catalogPath, "catalog", defaultCatalogPath(), "Path to the download catalog file")
	return cmd
}

func defaultCatalogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fetchctl-catalog.yaml"
	}
	return filepath.Join(home, ".fetchctl-catalog.yaml")
}

func inferOutputPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download.bin"
	}
	base := path.Base(u.Path)
	if base == "" || base == "/" || base == "." {
		return "download.bin"
	}
	return base
}

// runGet drives a single download end to end. When live is true it
// redraws a progress line in place (interactive, single-download use);
// when false it only prints a start/finish line, so concurrent batch
// workers don't fight over the same terminal lines.
func runGet(rawURL string, flags *cliFlags, resumeRanges []*engine.DownloadRange, live bool) error {
	flags.setupLogging()

	outputPath := flags.output
	if outputPath == "" {
		outputPath = inferOutputPath(rawURL)
	}

	client := httpclient.New(httpclient.Config{
		Timeout:   flags.timeout,
		ProxyURL:  flags.proxyURL,
		UserAgent: flags.userAgent,
	})

	var openSink func() (engine.Sink, error)
	if flags.s3Bucket != "" {
		if flags.s3Key == "" {
			return fmt.Errorf("--s3-key is required with --s3-bucket")
		}
		openSink = func() (engine.Sink, error) {
			return s3sink.Open(outputPath, s3sink.Destination{
				Bucket:  flags.s3Bucket,
				Key:     flags.s3Key,
				Profile: flags.s3Profile,
			})
		}
	} else {
		openSink = func() (engine.Sink, error) {
			return filesink.Open(outputPath)
		}
	}

	if !live {
		fmt.Printf("fetchctl: starting %s -> %s\n", rawURL, outputPath)
	}
	reporter := output.NewReporter(outputPath, 0)

	cfg := engine.NewConfig(
		rawURL,
		engine.WithClient(client),
		engine.WithOpenSink(openSink),
		engine.WithPartSize(flags.partSize),
		engine.WithMaxPartCount(flags.connections),
		engine.WithMaxRetryCount(flags.retries),
		engine.WithAllowResuming(flags.allowResuming()),
		engine.WithAutoDisposeSink(true),
		engine.WithDownloadedRanges(resumeRanges),
	)

	ctrl, err := engine.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	if live {
		ticker := time.NewTicker(200 * time.Millisecond)
		stopTicker := make(chan struct{})
		go func() {
			for {
				select {
				case <-ticker.C:
					reporter.Update(ctrl.CurrentSize(), ctrl.TotalSize(), ctrl.BytesPerSecond())
				case <-stopTicker:
					return
				}
			}
		}()
		runErr = ctrl.Start(ctx)
		ticker.Stop()
		close(stopTicker)
		reporter.Update(ctrl.CurrentSize(), ctrl.TotalSize(), ctrl.BytesPerSecond())
		reporter.Done(runErr)
	} else {
		runErr = ctrl.Start(ctx)
		if runErr != nil {
			fmt.Printf("fetchctl: failed %s: %v\n", outputPath, runErr)
		} else {
			fmt.Printf("fetchctl: finished %s\n", outputPath)
		}
	}

	recordCatalog(ctrl, rawURL, outputPath)

	return runErr
}
