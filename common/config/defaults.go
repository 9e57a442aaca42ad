package config

func NewDefaultConfig() *VaultConfig {
	return &VaultConfig{
		General: GeneralConfig{
			DatasetsDir:  "./datasets",
			ManifestsDir: "./datasets/manifests",
			LogDirectory: "-",
			LogColors:    false,
			JsonLogs:     false,
			LogLevel:     "info",
		},
		Store: StoreConfig{
			Endpoint:        "",
			Region:          "auto",
			Ssl:             true,
			Bucket:          "drone-datasets",
			AccessKeyId:     "",
			SecretAccessKey: "",
			PublicBaseUrl:   "",
			StorageClass:    "STANDARD",
		},
		Transfers: TransfersConfig{
			NumWorkers:         4,
			MaxAttempts:        3,
			CallTimeoutSeconds: 300,
		},
		Presign: PresignConfig{
			ExpirySeconds:      86400,
			CacheExpirySeconds: 3600,
		},
		Sentry: SentryConfig{
			Enabled: false,
			Dsn:     "",
		},
	}
}
