// Package bucket provides the object storage client used to list, fetch,
// and probe graph artifacts. It wraps an S3-compatible provider and maps
// provider failures onto the package's sentinel errors so callers can
// separate the one fatal condition (rejected credentials) from ordinary
// per-object failures.
package bucket

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/config"
)

// AWS environment variables consulted when building the credential chain.
const (
	awsRoleARN              = "AWS_ROLE_ARN"
	awsWebIdentityTokenFile = "AWS_WEB_IDENTITY_TOKEN_FILE"
	awsRegion               = "AWS_REGION"
	awsDefaultRegion        = "AWS_DEFAULT_REGION"
)

// credentialCodes are the provider error codes that indicate the request
// was rejected for authentication reasons rather than a per-object issue.
var credentialCodes = map[string]bool{
	"AccessDenied":            true,
	"InvalidAccessKeyId":      true,
	"SignatureDoesNotMatch":   true,
	"CredentialsNotSupported": true,
}

// Client is an object storage client bound to one bucket.
type Client struct {
	mc     *minio.Client
	bucket string
	logger *slog.Logger
}

var _ Store = (*Client)(nil)

// New creates a Client for the named bucket. Credentials come from the
// AWS environment, switching to IAM web identity credentials when the
// corresponding variables are set.
func New(bucketName string, cfg config.BucketConfig, logger *slog.Logger) (*Client, error) {
	region := cfg.Region
	if region == "" {
		region = os.Getenv(awsRegion)
	}
	if region == "" {
		region = os.Getenv(awsDefaultRegion)
	}

	creds := credentials.NewEnvAWS()
	if os.Getenv(awsWebIdentityTokenFile) != "" && os.Getenv(awsRoleARN) != "" {
		creds = credentials.NewIAM("")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Region: region,
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &Client{mc: mc, bucket: bucketName, logger: logger}, nil
}

// Bucket returns the bucket name the client is bound to.
func (c *Client) Bucket() string {
	return c.bucket
}

// ListKeys returns every object key in the bucket.
func (c *Client) ListKeys(ctx context.Context) ([]string, error) {
	c.logger.Info("listing bucket contents", "bucket", c.bucket)
	return c.list(ctx, "")
}

// ListPrefix returns the object keys under prefix.
func (c *Client) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	return c.list(ctx, prefix)
}

func (c *Client) list(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	objects := c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objects {
		if object.Err != nil {
			return nil, classify("list objects", object.Err)
		}
		keys = append(keys, object.Key)
	}
	return keys, nil
}

// Download fetches one object into localPath.
func (c *Client) Download(ctx context.Context, key, localPath string) error {
	c.logger.Debug("downloading object", "key", key, "to", localPath)
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	if err := c.mc.FGetObject(ctx, c.bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("download %s: %w", key, ErrNotFound)
		}
		return classify(fmt.Sprintf("download %s", key), err)
	}
	return nil
}

// Exists probes one key with a head request.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.mc.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, classify(fmt.Sprintf("stat %s", key), err)
	}
	return true, nil
}

// classify wraps a provider error, substituting ErrCredentials when the
// provider signalled an authentication failure.
func classify(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	if credentialCodes[resp.Code] {
		return fmt.Errorf("%s: %w (%s)", op, ErrCredentials, resp.Code)
	}
	return fmt.Errorf("%s: %w", op, err)
}
