// Package providers builds the Provider configured in a profile.
package providers

import (
	"context"
	"fmt"

	"github.com/openfroyo/ceres/pkg/config"
	"github.com/openfroyo/ceres/pkg/engine"
	"github.com/openfroyo/ceres/pkg/providers/awsec2"
)

// New builds the provider variant selected by cfg.Type.
func New(ctx context.Context, cfg *config.ProviderConfig) (engine.Provider, error) {
	switch cfg.Type {
	case awsec2.Name:
		p, err := awsec2.New(ctx, awsec2.Options{
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			SharedProfile:   cfg.SharedProfile,
			RoleARN:         cfg.RoleARN,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q", cfg.Type)
	}
}
