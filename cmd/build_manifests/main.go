package main

import (
	"flag"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/skyfleet/datavault/checksums"
	"github.com/skyfleet/datavault/common/config"
	"github.com/skyfleet/datavault/common/logging"
	"github.com/skyfleet/datavault/common/rcontext"
	"github.com/skyfleet/datavault/common/version"
	"github.com/skyfleet/datavault/manifest"
)

func main() {
	configPath := flag.String("config", "datavault.yaml", "The path to the configuration")
	hashFlag := flag.String("hash", "", "Comma-separated digest algorithms to compute (md5,sha256); off by default to keep builds fast")
	datasetsFlag := flag.String("datasets", "", "Comma-separated dataset directories to process; defaults to all")
	flag.Parse()

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

	var algorithms []string
	if *hashFlag != "" {
		for _, alg := range strings.Split(*hashFlag, ",") {
			alg = strings.TrimSpace(alg)
			if alg != checksums.Md5 && alg != checksums.Sha256 {
				logrus.Fatal("Unknown hash algorithm: ", alg)
			}
			algorithms = append(algorithms, alg)
		}
	}

	ctx := rcontext.Initial()
	builder := manifest.NewBuilder(ctx.Config.General.DatasetsDir, ctx.Config.General.ManifestsDir)

	var names []string
	if *datasetsFlag != "" {
		names = strings.Split(*datasetsFlag, ",")
	} else {
		if names, err = builder.DiscoverDatasets(); err != nil {
			logrus.Fatal("Failed to list datasets: ", err)
		}
	}
	if len(names) == 0 {
		logrus.Warn("No datasets found under ", ctx.Config.General.DatasetsDir)
		os.Exit(1)
	}

	results := make([]*manifest.BuildResult, 0, len(names))
	for _, name := range names {
		result, err := builder.BuildDataset(ctx, strings.TrimSpace(name), algorithms)
		if err != nil {
			logrus.Fatalf("Failed to build manifest for %s: %v", name, err)
		}
		if err = builder.Write(result); err != nil {
			logrus.Fatalf("Failed to write manifests for %s: %v", name, err)
		}
		logrus.Infof("Built %s: %d files, %d curated media files",
			result.Full.Dataset, result.Full.Summary.FileCount, result.Media.Summary.FileCount)
		results = append(results, result)
	}

	if err = builder.WriteIndexes(results); err != nil {
		logrus.Fatal("Failed to write manifest indexes: ", err)
	}
	logrus.Infof("Wrote %d manifests to %s", len(results), ctx.Config.General.ManifestsDir)
}
