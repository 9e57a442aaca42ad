package config

type GeneralConfig struct {
	DatasetsDir  string `yaml:"datasetsDir"`
	ManifestsDir string `yaml:"manifestsDir"`
	LogDirectory string `yaml:"logDirectory"`
	LogColors    bool   `yaml:"logColors"`
	JsonLogs     bool   `yaml:"jsonLogs"`
	LogLevel     string `yaml:"logLevel"`
}

type StoreConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Ssl             bool   `yaml:"ssl"`
	Bucket          string `yaml:"bucketName"`
	AccessKeyId     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"accessSecret"`
	PublicBaseUrl   string `yaml:"publicBaseUrl"`
	StorageClass    string `yaml:"storageClass"`
}

type TransfersConfig struct {
	NumWorkers         int `yaml:"numWorkers"`
	MaxAttempts        int `yaml:"maxAttempts"`
	CallTimeoutSeconds int `yaml:"callTimeoutSeconds"`
}

type PresignConfig struct {
	ExpirySeconds      int `yaml:"expirySeconds"`
	CacheExpirySeconds int `yaml:"cacheExpirySeconds"`
}

type SentryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dsn     string `yaml:"dsn"`
}

type VaultConfig struct {
	General   GeneralConfig   `yaml:"repo"`
	Store     StoreConfig     `yaml:"store"`
	Transfers TransfersConfig `yaml:"transfers"`
	Presign   PresignConfig   `yaml:"presign"`
	Sentry    SentryConfig    `yaml:"sentry"`
}
