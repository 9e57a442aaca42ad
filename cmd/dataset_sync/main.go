package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/skyfleet/datavault/common/config"
	"github.com/skyfleet/datavault/common/logging"
	"github.com/skyfleet/datavault/common/rcontext"
	"github.com/skyfleet/datavault/common/version"
	"github.com/skyfleet/datavault/datastores"
	"github.com/skyfleet/datavault/pool"
	"github.com/skyfleet/datavault/sync"
)

const (
	exitOk      = 0
	exitPartial = 1
	exitFatal   = 2
)

func main() {
	configPath := flag.String("config", "datavault.yaml", "The path to the configuration")
	dataset := flag.String("dataset", "", "Dataset name to act on")
	all := flag.Bool("all", false, "Act on every dataset with a manifest")
	workers := flag.Int("workers", 0, "Number of transfer workers (default from config)")
	noVerify := flag.Bool("no-verify", false, "Skip checksum validation on download")
	flag.Parse()

	action := flag.Arg(0)
	if action == "" {
		fmt.Println("Usage: dataset_sync [flags] upload|download|list|sync")
		os.Exit(exitFatal)
	}

	if configEnv := os.Getenv("DATAVAULT_CONFIG"); configEnv != "" {
		configPath = &configEnv
	}
	config.Path = *configPath

	err := logging.Setup(
		config.Get().General.LogDirectory,
		config.Get().General.LogColors,
		config.Get().General.JsonLogs,
		config.Get().General.LogLevel,
	)
	if err != nil {
		panic(err)
	}

	version.Print(true)

	if config.Get().Sentry.Enabled {
		if err = sentry.Init(sentry.ClientOptions{Dsn: config.Get().Sentry.Dsn}); err != nil {
			logrus.Warn("Failed to initialize sentry: ", err)
		}
	}

	numWorkers := *workers
	if numWorkers <= 0 {
		numWorkers = config.Get().Transfers.NumWorkers
	}
	pool.Init(numWorkers)
	defer pool.Drain()

	// A user interrupt stops dispatching new transfers; in-flight ones
	// finish or fail cleanly.
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx := rcontext.InitialWith(sigCtx)

	store, err := datastores.GetStore(ctx)
	if err != nil {
		logrus.Error("Object store unavailable: ", err)
		os.Exit(exitFatal)
	}
	manager := sync.NewManager(ctx, store, pool.TransferQueue)

	switch action {
	case "list":
		runList(ctx, manager)
	case "upload":
		os.Exit(runBatches(ctx, manager, "Uploaded", func() ([]*sync.BatchResult, error) {
			if *all {
				return manager.UploadAll(ctx)
			}
			requireDataset(*dataset)
			res, err := manager.UploadDataset(ctx, *dataset)
			return wrapOne(res, err)
		}))
	case "download":
		os.Exit(runBatches(ctx, manager, "Downloaded", func() ([]*sync.BatchResult, error) {
			if *all {
				return manager.DownloadAll(ctx, !*noVerify)
			}
			requireDataset(*dataset)
			res, err := manager.DownloadDataset(ctx, *dataset, !*noVerify)
			return wrapOne(res, err)
		}))
	case "sync":
		os.Exit(runBatches(ctx, manager, "Downloaded", func() ([]*sync.BatchResult, error) {
			return manager.DownloadAll(ctx, !*noVerify)
		}))
	default:
		logrus.Error("Unknown action: ", action)
		os.Exit(exitFatal)
	}
}

func requireDataset(dataset string) {
	if dataset == "" {
		logrus.Error("Please specify -dataset NAME or -all")
		os.Exit(exitFatal)
	}
}

func wrapOne(res *sync.BatchResult, err error) ([]*sync.BatchResult, error) {
	if err != nil {
		return nil, err
	}
	return []*sync.BatchResult{res}, nil
}

func runBatches(ctx rcontext.RequestContext, manager *sync.Manager, verb string, op func() ([]*sync.BatchResult, error)) int {
	results, err := op()
	if err != nil {
		logrus.Error("Batch could not run: ", err)
		return exitFatal
	}

	code := exitOk
	for _, res := range results {
		res.LogSummary(ctx, verb)
		if !res.FullySucceeded() {
			code = exitPartial
		}
	}
	return code
}

func runList(ctx rcontext.RequestContext, manager *sync.Manager) {
	datasets, err := manager.ListLocalDatasets()
	if err != nil {
		logrus.Error("Failed to list manifests: ", err)
		os.Exit(exitFatal)
	}
	logrus.Info("Datasets with manifests:")
	for _, name := range datasets {
		logrus.Info("  - ", name)
	}

	objects, err := manager.ListRemote(ctx, "")
	if err != nil {
		logrus.Error("Failed to list remote objects: ", err)
		os.Exit(exitFatal)
	}
	logrus.Infof("Remote objects: %d", len(objects))
}
