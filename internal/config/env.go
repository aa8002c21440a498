package config

import "os"

// Credentials are the environment-supplied secrets consumed during
// bootstrap: cloud secret-store access and the VCS credential the GitOps
// controller needs for private platform repositories.
type Credentials struct {
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	GitUsername        string
	GitToken           string
}

// LoadEnvCredentials reads credentials from the environment. The SDK's
// default chain picks the AWS keys up on its own; they are surfaced here as
// well because the secret-injection phase seeds them into the cluster for
// the secret syncer.
func LoadEnvCredentials() *Credentials {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = os.Getenv("AWS_DEFAULT_REGION")
	}
	return &Credentials{
		AWSRegion:          region,
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		GitUsername:        os.Getenv("ZTBOOT_GIT_USERNAME"),
		GitToken:           os.Getenv("ZTBOOT_GIT_TOKEN"),
	}
}

// HasCloudKeys reports whether literal cloud keys are present for injection.
func (c *Credentials) HasCloudKeys() bool {
	return c.AWSAccessKeyID != "" && c.AWSSecretAccessKey != ""
}
