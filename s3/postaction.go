package s3

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hashicorp/go-multierror"

	xfererrors "github.com/taskrunner-io/transfer/errors"
	"github.com/taskrunner-io/transfer/xfertypes"
)

// HandlePostCopyAction applies the spec's disposition to the transferred
// keys. Delete issues one quiet-mode bulk delete for the whole batch;
// move and rename run a copy-then-delete sequence per file, so a crash in
// between leaves a duplicate rather than lost data. Every backend call's
// outcome is checked and surfaced.
func (h *Handler) HandlePostCopyAction(ctx context.Context, files []string) error {
	pca := h.spec.PostCopyAction
	if pca == nil || pca.Action == xfertypes.ActionNone || len(files) == 0 {
		return nil
	}

	switch pca.Action {
	case xfertypes.ActionDelete:
		return h.bulkDelete(ctx, files)
	case xfertypes.ActionMove, xfertypes.ActionRename:
		return h.relocate(ctx, files, pca)
	default:
		return xfererrors.NewError("handlePostCopyAction", xfererrors.ErrInvalidInput).
			WithBucket(h.spec.Bucket).
			WithMessage(fmt.Sprintf("unknown action %q", pca.Action))
	}
}

// bulkDelete removes all given keys in a single quiet-mode request and
// surfaces any per-key failures the backend reports.
func (h *Handler) bulkDelete(ctx context.Context, files []string) error {
	objects := make([]types.ObjectIdentifier, 0, len(files))
	for _, key := range files {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
	}

	out, err := h.client.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
		Bucket: aws.String(h.spec.Bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return xfererrors.NewError("handlePostCopyAction", err).WithBucket(h.spec.Bucket)
	}

	var result *multierror.Error
	for _, e := range out.Errors {
		key := aws.ToString(e.Key)
		h.logger.Error().
			Str("file", key).
			Str("code", aws.ToString(e.Code)).
			Msg("failed to delete file")
		result = multierror.Append(result, xfererrors.NewError("handlePostCopyAction",
			fmt.Errorf("delete failed: %s", aws.ToString(e.Message))).
			WithBucket(h.spec.Bucket).
			WithKey(key))
	}
	return result.ErrorOrNil()
}

// relocate copies each key to its destination and then deletes the
// original, copy strictly preceding delete. For rename the base name is
// rewritten with the spec's pattern substitution before joining it under
// the destination prefix; move keeps the base name as is.
func (h *Handler) relocate(ctx context.Context, files []string, pca *xfertypes.PostCopyAction) error {
	var re *regexp.Regexp
	if pca.Action == xfertypes.ActionRename {
		var err error
		re, err = regexp.Compile(pca.Pattern)
		if err != nil {
			return xfererrors.NewError("handlePostCopyAction", xfererrors.ErrInvalidInput).
				WithBucket(h.spec.Bucket).
				WithMessage("rename pattern does not compile: " + err.Error())
		}
	}

	var result *multierror.Error

	for _, key := range files {
		newBase := baseKey(key)
		if re != nil {
			newBase = re.ReplaceAllString(newBase, pca.Sub)
		}
		target := joinKey(pca.Destination, newBase)

		h.logger.Debug().Str("file", key).Str("key", target).Msg("relocating file")

		_, err := h.client.CopyObject(ctx, &awss3.CopyObjectInput{
			Bucket:     aws.String(h.spec.Bucket),
			Key:        aws.String(target),
			CopySource: aws.String(h.spec.Bucket + "/" + key),
		})
		if err != nil {
			h.logger.Error().Err(err).Str("file", key).Msg("failed to relocate file")
			result = multierror.Append(result, xfererrors.NewError("handlePostCopyAction", err).
				WithBucket(h.spec.Bucket).
				WithKey(key))
			// Leave the original in place when its copy failed.
			continue
		}

		if err := h.bulkDelete(ctx, []string{key}); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}
