package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"shopkeep-go/internal/config"
	"shopkeep-go/internal/sk"
)

// S3API is the subset of the S3 client used by S3Vault.
type S3API interface {
	manager.UploadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Vault stores each account's archive at <prefix>/<account>/backup.zip.
// The object key is the remote handle. S3 has no trash, so any object at
// the key is a match.
type S3Vault struct {
	client   S3API
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Vault creates an S3Vault on top of client.
func NewS3Vault(client S3API, bucket, prefix string) *S3Vault {
	return &S3Vault{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

// NewS3VaultFromConfig loads AWS configuration and creates an S3Vault.
func NewS3VaultFromConfig(ctx context.Context, cfg config.VaultConfig) (*S3Vault, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Vault(client, cfg.S3Bucket, cfg.S3Prefix), nil
}

func (v *S3Vault) key(account sk.Identity) string {
	return path.Join(v.prefix, accountSegment(account), sk.BackupObjectName)
}

// FindBackupObject returns the account's key if an object exists there.
func (v *S3Vault) FindBackupObject(ctx context.Context, grant sk.AccessGrant) (*sk.RemoteHandle, error) {
	if err := requireGrant("find", grant); err != nil {
		return nil, err
	}
	key := v.key(grant.Account)
	_, err := v.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if isS3NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, sk.NewTransportError("find", fmt.Errorf("head s3://%s/%s: %w", v.bucket, key, err))
	}
	return &sk.RemoteHandle{ID: key}, nil
}

// Upload writes the archive to the existing key or the account's key.
func (v *S3Vault) Upload(ctx context.Context, grant sk.AccessGrant, localArchive string, existing *sk.RemoteHandle) (sk.RemoteHandle, error) {
	if err := requireGrant("upload", grant); err != nil {
		return sk.RemoteHandle{}, err
	}
	key := v.key(grant.Account)
	if existing != nil {
		key = existing.ID
	}

	f, err := os.Open(localArchive)
	if err != nil {
		return sk.RemoteHandle{}, sk.NewTransportError("upload", fmt.Errorf("opening archive: %w", err))
	}
	defer f.Close()

	_, err = v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(v.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(archiveMIME),
	})
	if err != nil {
		return sk.RemoteHandle{}, sk.NewTransportError("upload", fmt.Errorf("put s3://%s/%s: %w", v.bucket, key, err))
	}
	return sk.RemoteHandle{ID: key}, nil
}

// Download streams the object at handle's key to dest.
func (v *S3Vault) Download(ctx context.Context, grant sk.AccessGrant, handle sk.RemoteHandle, dest string) error {
	if err := requireGrant("download", grant); err != nil {
		return err
	}
	out, err := v.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(handle.ID),
	})
	if err != nil {
		return sk.NewTransportError("download", fmt.Errorf("get s3://%s/%s: %w", v.bucket, handle.ID, err))
	}
	defer out.Body.Close()

	if _, err := writeFile(dest, out.Body); err != nil {
		return sk.NewTransportError("download", err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}

// Compile-time check that S3Vault implements sk.Vault interface
var _ sk.Vault = (*S3Vault)(nil)
