package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v2"
)

var Path = "datavault.yaml"

var instance *VaultConfig
var singletonLock = &sync.Once{}

func reloadConfig() (*VaultConfig, error) {
	c := NewDefaultConfig()

	// Write a default config if the one given doesn't exist
	_, err := os.Stat(Path)
	exists := err == nil || !os.IsNotExist(err)
	if !exists {
		fmt.Println("Generating new configuration...")
		configBytes, err := yaml.Marshal(c)
		if err != nil {
			return nil, err
		}

		newFile, err := os.Create(Path)
		if err != nil {
			return nil, err
		}

		_, err = newFile.Write(configBytes)
		if err != nil {
			return nil, err
		}

		err = newFile.Close()
		if err != nil {
			return nil, err
		}
	}

	buffer, err := os.ReadFile(Path)
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(buffer, c); err != nil {
		return nil, err
	}

	applyEnvOverrides(c)
	return c, nil
}

// applyEnvOverrides lets credentials live outside the config file. The
// variable names match the Cloudflare R2 convention so an existing .env can
// be exported as-is.
func applyEnvOverrides(c *VaultConfig) {
	if v := firstEnv("CLOUDFLARE_R2_ENDPOINT_URL", "CLOUDFLARE_R2_ENDPOINT"); v != "" {
		c.Store.Endpoint = v
	}
	if v := os.Getenv("CLOUDFLARE_R2_ACCESS_KEY_ID"); v != "" {
		c.Store.AccessKeyId = v
	}
	if v := os.Getenv("CLOUDFLARE_R2_SECRET_ACCESS_KEY"); v != "" {
		c.Store.SecretAccessKey = v
	}
	if v := os.Getenv("CLOUDFLARE_R2_BUCKET_NAME"); v != "" {
		c.Store.Bucket = v
	}
	if v := os.Getenv("CLOUDFLARE_R2_PUBLIC_URL"); v != "" {
		c.Store.PublicBaseUrl = v
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func Get() *VaultConfig {
	if instance == nil {
		singletonLock.Do(func() {
			c, err := reloadConfig()
			if err != nil {
				panic(err)
			}
			instance = c
		})
	}
	return instance
}

// HasCredentials reports whether the credentialed store operations (upload,
// download, list, presign) can run. Participant-side consumption of a
// published manifest never needs this.
func (c *VaultConfig) HasCredentials() bool {
	return c.Store.Endpoint != "" && c.Store.AccessKeyId != "" && c.Store.SecretAccessKey != ""
}
