package s3

import (
	"context"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	xfererrors "github.com/taskrunner-io/transfer/errors"
	"github.com/taskrunner-io/transfer/xfertypes"
)

// maxObjectsPerQuery caps one listing round trip.
const maxObjectsPerQuery = 100

// ListFiles enumerates objects under the optional prefix in pages of at
// most maxObjectsPerQuery keys, filters their leaf names against the
// optional pattern (full-match), and fetches size and modification time
// for every survivor.
//
// A nil FileSet with a nil error means the prefix matched no objects at
// all; a non-nil empty FileSet means objects existed but none passed the
// filter. The pagination loop ends when the backend omits the
// continuation token.
func (h *Handler) ListFiles(ctx context.Context, prefix, pattern string) (xfertypes.FileSet, error) {
	var re *regexp.Regexp
	if pattern != "" {
		var err error
		re, err = regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, xfererrors.NewError("listFiles", xfererrors.ErrInvalidInput).
				WithBucket(h.spec.Bucket).
				WithMessage("file pattern does not compile: " + err.Error())
		}
	}

	input := &awss3.ListObjectsV2Input{
		Bucket:  aws.String(h.spec.Bucket),
		MaxKeys: aws.Int32(maxObjectsPerQuery),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var found xfertypes.FileSet

	for {
		out, err := h.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, xfererrors.NewError("listFiles", err).WithBucket(h.spec.Bucket)
		}

		// Nothing at all under the prefix is a distinct outcome from an
		// empty filtered set.
		if found == nil && aws.ToInt32(out.KeyCount) == 0 {
			return nil, nil
		}
		if found == nil {
			found = make(xfertypes.FileSet)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			name := baseKey(key)
			h.logger.Debug().Str("file", name).Msg("found file")

			if re != nil && !re.MatchString(name) {
				continue
			}

			head, err := h.client.HeadObject(ctx, &awss3.HeadObjectInput{
				Bucket: aws.String(h.spec.Bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				return nil, xfererrors.NewError("listFiles", err).
					WithBucket(h.spec.Bucket).
					WithKey(key)
			}

			found[key] = xfertypes.RemoteFile{
				Size:     aws.ToInt64(head.ContentLength),
				Modified: aws.ToTime(head.LastModified),
			}
		}

		// A missing token means the listing is complete, not an error.
		if out.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}

	return found, nil
}
