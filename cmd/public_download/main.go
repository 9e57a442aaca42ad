package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"
	"time"

	"github.com/Jeffail/tunny"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/skyfleet/datavault/common/logging"
	"github.com/skyfleet/datavault/participant"
	"github.com/skyfleet/datavault/publish"
)

// Downloads a published dataset (or bundle) using only its presigned
// manifest. No object store credentials or config file required.
func main() {
	manifestPath := flag.String("manifest", "", "Path to the public manifest JSON")
	outputDir := flag.String("output-dir", "datasets", "Directory to place downloaded files")
	noVerify := flag.Bool("no-verify", false, "Skip checksum and size verification")
	workers := flag.Int("workers", 1, "Number of parallel downloads")
	startFrom := flag.Int("start-from", 0, "Skip entries before this index (see find_resume)")
	timeoutSeconds := flag.Int("timeout", 300, "Per-file fetch timeout in seconds")
	flag.Parse()

	if err := logging.Setup("-", false, false, "info"); err != nil {
		panic(err)
	}

	if *manifestPath == "" {
		logrus.Error("Please specify -manifest PATH")
		os.Exit(2)
	}

	pm, err := publish.LoadPublic(*manifestPath)
	if err != nil {
		logrus.Error("Failed to load manifest: ", err)
		os.Exit(2)
	}
	logrus.Infof("Loaded manifest %s: %d files", pm.Name(), len(pm.Files))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := participant.Options{
		OutputRoot: *outputDir,
		Verify:     !*noVerify,
		Timeout:    time.Duration(*timeoutSeconds) * time.Second,
	}

	result := &participant.Result{}
	var resultMu gosync.Mutex

	pool := tunny.NewFunc(*workers, func(payload interface{}) interface{} {
		entry := payload.(*publish.PresignedEntry)
		outcome := participant.DownloadEntry(ctx, pm, entry, opts)
		resultMu.Lock()
		result.Record(outcome)
		resultMu.Unlock()
		return nil
	})
	defer pool.Close()

	var wg gosync.WaitGroup
	for i, entry := range pm.Files {
		if ctx.Err() != nil {
			break
		}
		if i < *startFrom {
			resultMu.Lock()
			result.Record(participant.Outcome{Status: participant.StatusSkipped})
			resultMu.Unlock()
			continue
		}

		entry := entry
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Process(entry)
		}()
	}
	wg.Wait()

	var totalBytes int64
	for _, f := range pm.Files {
		totalBytes += f.SizeBytes
	}
	logrus.Infof("Download complete: %d downloaded, %d skipped, %d failed, %d expired (%s total)",
		result.Downloaded, result.Skipped, len(result.Failed)-result.Expired, result.Expired,
		humanize.Bytes(uint64(totalBytes)))
	for _, f := range result.Failed {
		logrus.Error("  failed: ", f.String())
	}

	if !result.FullySucceeded() {
		os.Exit(1)
	}
}
