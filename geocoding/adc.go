// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

// GoogleKeyLookup locates a Google Maps key through Application Default
// Credentials and the Cloud API Keys service.
type GoogleKeyLookup struct {
	// ProjectID is used when the credentials do not carry one.
	ProjectID string

	// DisplayName of the key resource to retrieve.
	DisplayName string
}

// APIKeyFromADC returns the key string of the key named l.DisplayName.
func (l GoogleKeyLookup) APIKeyFromADC(ctx context.Context) (string, error) {
	if l.DisplayName == "" {
		return "", errors.New("no key display name configured")
	}

	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("finding default credentials: %w", err)
	}

	projectID := creds.ProjectID
	if projectID == "" {
		// user credentials without a quota project
		projectID = l.ProjectID
		if projectID == "" {
			return "", errors.New("no project id found in credentials and none configured")
		}

		log.Printf("⚠️ No Project ID found in credentials. Using configured: %s", projectID)
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != l.DisplayName {
			continue
		}

		// ListKeys redacts the KeyString, GetKeyString returns it.
		log.Printf("Found key resource '%s', retrieving secret...", key.Name)

		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key '%s' found but KeyString is empty", l.DisplayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name '%s' not found in project %s", l.DisplayName, projectID)
}
