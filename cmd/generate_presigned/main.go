package main

import (
	"flag"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skyfleet/datavault/common/config"
	"github.com/skyfleet/datavault/common/logging"
	"github.com/skyfleet/datavault/common/rcontext"
	"github.com/skyfleet/datavault/common/version"
	"github.com/skyfleet/datavault/datastores"
	"github.com/skyfleet/datavault/manifest"
	"github.com/skyfleet/datavault/publish"
)

func main() {
	configPath := flag.String("config", "datavault.yaml", "The path to the configuration")
	dataset := flag.String("dataset", "", "Dataset name to generate presigned URLs for")
	all := flag.Bool("all", false, "Generate public manifests for all datasets")
	expiresIn := flag.Int("expires-in", 0, "Expiry in seconds for each presigned URL (default from config)")
	output := flag.String("output", "", "Output path (only valid when generating a single dataset)")
	bundle := flag.String("bundle", "", "Optional name for an aggregated manifest including every processed dataset")
	bundleOutput := flag.String("bundle-output", "", "Override path for the aggregated manifest")
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

	ctx := rcontext.Initial()
	store, err := datastores.GetStore(ctx)
	if err != nil {
		logrus.Error("Object store unavailable: ", err)
		os.Exit(2)
	}
	publisher := publish.NewPublisher(ctx, store)

	var names []string
	if *all {
		if names, err = manifest.ListDatasets(publisher.ManifestsDir); err != nil {
			logrus.Fatal("Failed to list datasets: ", err)
		}
		if len(names) == 0 {
			logrus.Error("No datasets found in manifests directory")
			os.Exit(1)
		}
	} else if *dataset != "" {
		names = []string{*dataset}
	} else {
		logrus.Error("Please specify -dataset NAME or -all")
		os.Exit(2)
	}

	ttlSeconds := *expiresIn
	if ttlSeconds <= 0 {
		ttlSeconds = config.Get().Presign.ExpirySeconds
	}
	ttl := time.Duration(ttlSeconds) * time.Second

	// One publish instant shared across datasets, so every manifest of this
	// run expires together.
	now := time.Now().UTC()

	payloads := make([]*publish.PresignedManifest, 0, len(names))
	outputs := make([]string, 0, len(names))
	for _, name := range names {
		pm, err := publisher.PublishDataset(ctx, name, ttl, now)
		if err != nil {
			logrus.Errorf("Skipping %s: %v", name, err)
			continue
		}
		payloads = append(payloads, pm)

		outPath := ""
		if *output != "" && len(names) == 1 {
			outPath = *output
			err = pm.Save(outPath)
		} else {
			outPath, err = publisher.Write(pm)
		}
		if err != nil {
			logrus.Fatalf("Failed to write public manifest for %s: %v", name, err)
		}
		outputs = append(outputs, outPath)
	}

	if *bundle != "" && len(payloads) > 0 {
		bundlePm := publish.BuildBundle(*bundle, payloads, now, ttl)
		bundlePath := *bundleOutput
		if bundlePath == "" {
			bundlePath = publish.PublicPathFor(publisher.ManifestsDir, *bundle)
		}
		if err = bundlePm.Save(bundlePath); err != nil {
			logrus.Fatal("Failed to write bundle manifest: ", err)
		}
		outputs = append(outputs, bundlePath)
	}

	if len(outputs) == 0 {
		os.Exit(1)
	}
	logrus.Info("Generated presigned manifests:")
	for _, p := range outputs {
		logrus.Info("  - ", p)
	}
}
