package firebase

import (
	"context"
	"fmt"
	"os"

	fbapp "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"propertychat/pkg/logger"
)

// CredentialsOption prefers inline service account JSON (production) and falls
// back to a file path (local development). With neither, application default
// credentials are used.
func CredentialsOption(serviceAccountJSON, serviceAccountPath string) (option.ClientOption, error) {
	if serviceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return option.WithCredentialsJSON([]byte(serviceAccountJSON)), nil
	}

	if serviceAccountPath != "" {
		if _, err := os.Stat(serviceAccountPath); err != nil {
			return nil, fmt.Errorf("service account file %s: %w", serviceAccountPath, err)
		}
		logger.Info("Using Firebase service account from file: %s", serviceAccountPath)
		return option.WithCredentialsFile(serviceAccountPath), nil
	}

	return nil, nil
}

func NewApp(ctx context.Context, projectID string, opt option.ClientOption) (*fbapp.App, error) {
	var opts []option.ClientOption
	if opt != nil {
		opts = append(opts, opt)
	}

	app, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase: %w", err)
	}
	return app, nil
}
