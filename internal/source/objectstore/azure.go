package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureBlobConfig holds Azure Blob Storage configuration.
type AzureBlobConfig struct {
	AccountName string
	AccountKey  string
	SASToken    string // Shared Access Signature token
	Container   string
	Endpoint    string // Optional custom endpoint
}

// AzureBlobClient wraps the Azure Blob Storage client behind the Client
// interface.
type AzureBlobClient struct {
	client    *azblob.Client
	container string
}

// NewAzureBlobClient creates a new Azure Blob Storage client.
func NewAzureBlobClient(cfg *AzureBlobConfig) (*AzureBlobClient, error) {
	if cfg.AccountName == "" {
		return nil, fmt.Errorf("account name is required")
	}
	if cfg.Container == "" {
		return nil, fmt.Errorf("container is required")
	}

	blobURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	if cfg.Endpoint != "" {
		blobURL = cfg.Endpoint
	}

	var client *azblob.Client
	var err error
	if cfg.SASToken != "" {
		client, err = azblob.NewClientWithNoCredential(blobURL+"?"+strings.TrimPrefix(cfg.SASToken, "?"), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Blob client with SAS: %w", err)
		}
	} else {
		credential, credErr := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(blobURL, credential, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Blob client: %w", err)
		}
	}

	return &AzureBlobClient{client: client, container: cfg.Container}, nil
}

// Backend implements Client.
func (c *AzureBlobClient) Backend() string { return "azure" }

// List implements Client.
func (c *AzureBlobClient) List(ctx context.Context, prefix, suffix string) ([]Object, error) {
	var objects []Object
	pager := c.client.NewListBlobsFlatPager(c.container, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}
		for _, blob := range page.Segment.BlobItems {
			if blob.Name == nil {
				continue
			}
			if suffix != "" && !strings.HasSuffix(*blob.Name, suffix) {
				continue
			}
			var size int64
			if blob.Properties != nil && blob.Properties.ContentLength != nil {
				size = *blob.Properties.ContentLength
			}
			objects = append(objects, Object{Key: *blob.Name, Size: size})
		}
	}
	return objects, nil
}

// Get implements Client.
func (c *AzureBlobClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := c.client.DownloadStream(ctx, c.container, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download blob %s: %w", key, err)
	}
	return resp.Body, nil
}
