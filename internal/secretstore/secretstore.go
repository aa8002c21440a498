// Package secretstore writes bootstrap credentials into the cloud parameter
// store so the in-cluster secret syncer can pick them up once GitOps takes
// over.
package secretstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// Store writes and probes secure parameters.
type Store interface {
	// Put writes value under name as a SecureString, overwriting any
	// previous version.
	Put(ctx context.Context, name, value string) error
	// Exists reports whether a parameter is already present.
	Exists(ctx context.Context, name string) (bool, error)
}

// Client is the SSM Parameter Store implementation of Store.
type Client struct {
	ssm *ssm.Client
}

// NewClient creates a parameter store client using the ambient AWS
// credential chain (env vars, shared config, instance role).
func NewClient(ctx context.Context, region string) (*Client, error) {
	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Client{ssm: ssm.NewFromConfig(cfg)}, nil
}

// Put writes a SecureString parameter, overwriting existing versions.
func (c *Client) Put(ctx context.Context, name, value string) error {
	_, err := c.ssm.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(name),
		Value:     aws.String(value),
		Type:      types.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to put parameter %s: %w", name, err)
	}
	return nil
}

// Exists reports whether the parameter is present. A missing parameter is
// not an error.
func (c *Client) Exists(ctx context.Context, name string) (bool, error) {
	_, err := c.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(name),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check parameter %s: %w", name, err)
	}
	return true, nil
}
