package blob

import (
	"context"

	infraS3 "seqedit/internal/infra/blob/s3"
)

// S3Config configures the S3 backend.
type S3Config = infraS3.Config

// NewS3 constructs an S3-backed store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// NewMockS3ForTests returns an S3 store talking to an in-process fake endpoint.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
