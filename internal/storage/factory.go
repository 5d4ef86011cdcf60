package storage

import (
	"context"
	"fmt"
	"os"
)

// Backend is the proof-image store selected at startup.
type Backend struct {
	Driver  string
	Storage Storage
}

// FromEnv picks the backend from STORAGE_DRIVER. Local disk is the
// default; s3 needs the full region/bucket/public-URL triple.
func FromEnv(ctx context.Context) (Backend, error) {
	driver := os.Getenv("STORAGE_DRIVER")
	if driver == "" {
		driver = "local"
	}

	switch driver {
	case "local":
		dir := envOr("PROOF_DIR", "./storage/proofs")
		urlPrefix := envOr("PROOF_URL_PREFIX", "/proofs")
		return Backend{Driver: "local", Storage: NewLocal(dir, urlPrefix)}, nil

	case "s3":
		region := envOr("S3_REGION", "")
		bucket := envOr("S3_BUCKET", "")
		publicBase := envOr("S3_PUBLIC_BASE_URL", "")
		prefix := envOr("S3_PREFIX", "proofs")
		if region == "" || bucket == "" || publicBase == "" {
			return Backend{}, fmt.Errorf("s3 storage needs S3_REGION, S3_BUCKET and S3_PUBLIC_BASE_URL")
		}
		s, err := NewS3(ctx, S3Config{
			Region:        region,
			Bucket:        bucket,
			Prefix:        prefix,
			PublicBaseURL: publicBase,
		})
		if err != nil {
			return Backend{}, err
		}
		return Backend{Driver: "s3", Storage: s}, nil

	default:
		return Backend{}, fmt.Errorf("unknown STORAGE_DRIVER %q", driver)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
