// Package s3 implements the remote transfer handler for S3-compatible
// object stores.
package s3

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/rs/zerolog"

	"github.com/taskrunner-io/transfer"
	xfererrors "github.com/taskrunner-io/transfer/errors"
	"github.com/taskrunner-io/transfer/s3/internal/s3api"
	"github.com/taskrunner-io/transfer/xfertypes"
)

// EndpointEnv overrides the backend endpoint URL when set. Useful for
// pointing at non-default or test endpoints; path-style addressing is
// enabled alongside it since such endpoints rarely support virtual
// hosting.
const EndpointEnv = "AWS_ENDPOINT_URL"

// regionEnv is the fallback region when the spec leaves region_name unset.
const regionEnv = "AWS_DEFAULT_REGION"

// Handler is the object-store implementation of transfer.RemoteHandler.
// One instance is constructed per task run and owns its client handle
// exclusively until Tidy is called.
type Handler struct {
	spec   *xfertypes.TransferSpec
	client s3api.API
	fs     fs.Filesystem
	logger zerolog.Logger
}

var _ transfer.RemoteHandler = (*Handler)(nil)

// New builds a handler for the given spec. Credentials come from the spec
// when present, otherwise the SDK default chain (environment) applies;
// the region falls back to AWS_DEFAULT_REGION and the endpoint honors
// the AWS_ENDPOINT_URL override.
func New(ctx context.Context, spec *xfertypes.TransferSpec, logger zerolog.Logger) (*Handler, error) {
	if spec == nil || spec.Bucket == "" {
		return nil, xfererrors.NewError("new", xfererrors.ErrInvalidInput).
			WithMessage("transfer spec must name a bucket")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error

	region := spec.Protocol.RegionName
	if region == "" {
		region = os.Getenv(regionEnv)
	}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}

	if spec.Protocol.AccessKeyID != "" && spec.Protocol.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				spec.Protocol.AccessKeyID, spec.Protocol.SecretAccessKey, "",
			),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, xfererrors.NewError("new", err).WithBucket(spec.Bucket)
	}

	var s3Opts []func(*awss3.Options)
	if endpoint := os.Getenv(EndpointEnv); endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	return &Handler{
		spec:   spec,
		client: awss3.NewFromConfig(cfg, s3Opts...),
		fs:     billy.NewOSFS("/"),
		logger: logger.With().Str("handler", string(transfer.KindS3)).Str("bucket", spec.Bucket).Logger(),
	}, nil
}

// NewWithClient builds a handler around an existing API implementation and
// filesystem. This is primarily used for testing with mocked clients.
func NewWithClient(spec *xfertypes.TransferSpec, client s3api.API, filesystem fs.Filesystem, logger zerolog.Logger) *Handler {
	return &Handler{
		spec:   spec,
		client: client,
		fs:     filesystem,
		logger: logger,
	}
}

// Kind returns the backend type tag.
func (h *Handler) Kind() transfer.Kind {
	return transfer.KindS3
}

// Spec returns the handler's transfer specification.
func (h *Handler) Spec() *xfertypes.TransferSpec {
	return h.spec
}

// MoveFilesToFinalLocation is unsupported: object stores do not stage
// through an intermediate area before final placement.
func (h *Handler) MoveFilesToFinalLocation(ctx context.Context, files []string) error {
	return xfererrors.NewError("moveFilesToFinalLocation", xfererrors.ErrNotSupported).
		WithBucket(h.spec.Bucket)
}

// Tidy releases the backend client. The handler must not be used
// afterwards.
func (h *Handler) Tidy() error {
	h.client = nil
	return nil
}
