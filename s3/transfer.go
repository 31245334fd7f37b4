package s3

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/hashicorp/go-multierror"

	"github.com/taskrunner-io/transfer"
	xfererrors "github.com/taskrunner-io/transfer/errors"
)

// defaultContentType is used when content type detection fails.
const defaultContentType = "application/octet-stream"

// PushFilesFromWorker uploads every regular file directly inside the flat
// staging directory, keyed by the destination prefix plus the file's base
// name. A single-file failure is logged and accumulated; the remaining
// files still attempt transfer.
func (h *Handler) PushFilesFromWorker(ctx context.Context, stagingDir string) error {
	entries, err := h.fs.ReadDir(stagingDir)
	if err != nil {
		return xfererrors.NewError("pushFilesFromWorker", err).WithBucket(h.spec.Bucket)
	}

	var result *multierror.Error

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		local := filepath.Join(stagingDir, entry.Name())
		key := joinKey(h.spec.Directory, entry.Name())
		h.logger.Debug().Str("file", local).Str("key", key).Msg("transferring file")

		if err := h.uploadFile(ctx, local, key); err != nil {
			h.logger.Error().Err(err).Str("file", local).Msg("failed to transfer file")
			result = multierror.Append(result, xfererrors.NewError("pushFilesFromWorker", err).
				WithBucket(h.spec.Bucket).
				WithKey(key))
		}
	}

	return result.ErrorOrNil()
}

func (h *Handler) uploadFile(ctx context.Context, local, key string) error {
	file, err := h.fs.Open(local)
	if err != nil {
		return err
	}
	defer file.Close()

	input := &awss3.PutObjectInput{
		Bucket:      aws.String(h.spec.Bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(h.detectContentType(local)),
	}
	if h.spec.Protocol.OwnerFullControl() {
		input.ACL = types.ObjectCannedACLBucketOwnerFullControl
	}

	_, err = h.client.PutObject(ctx, input)
	return err
}

// PullFilesToWorker downloads each given remote key into the staging
// directory using the key's base name. Same per-file isolation and
// failure-accumulation policy as PushFilesFromWorker.
func (h *Handler) PullFilesToWorker(ctx context.Context, files []string, stagingDir string) error {
	var result *multierror.Error

	for _, key := range files {
		h.logger.Debug().Str("file", key).Msg("transferring file")

		if err := h.downloadFile(ctx, key, filepath.Join(stagingDir, baseKey(key))); err != nil {
			h.logger.Error().Err(err).Str("file", key).Msg("failed to transfer file")
			result = multierror.Append(result, xfererrors.NewError("pullFilesToWorker", err).
				WithBucket(h.spec.Bucket).
				WithKey(key))
		}
	}

	return result.ErrorOrNil()
}

func (h *Handler) downloadFile(ctx context.Context, key, local string) error {
	out, err := h.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(h.spec.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	defer out.Body.Close()

	file, err := h.fs.Create(local)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, out.Body)
	return err
}

// TransferFiles copies the given keys to the destination handler with
// per-file server-side copy requests, never staging through local disk.
// The destination must be the same backend type; any other pairing fails
// with ErrUnsupportedTransferPair.
func (h *Handler) TransferFiles(ctx context.Context, files []string, dest transfer.RemoteHandler) error {
	if dest == nil || dest.Kind() != transfer.KindS3 {
		return xfererrors.NewError("transferFiles", xfererrors.ErrUnsupportedTransferPair).
			WithBucket(h.spec.Bucket)
	}
	peer, ok := dest.(*Handler)
	if !ok {
		return xfererrors.NewError("transferFiles", xfererrors.ErrUnsupportedTransferPair).
			WithBucket(h.spec.Bucket)
	}

	var result *multierror.Error

	for _, key := range files {
		target := joinKey(peer.spec.Directory, baseKey(key))
		h.logger.Debug().Str("file", key).Str("key", target).Msg("transferring file")

		_, err := h.client.CopyObject(ctx, &awss3.CopyObjectInput{
			Bucket:     aws.String(peer.spec.Bucket),
			Key:        aws.String(target),
			CopySource: aws.String(h.spec.Bucket + "/" + key),
		})
		if err != nil {
			h.logger.Error().Err(err).Str("file", key).Msg("error transferring file")
			result = multierror.Append(result, xfererrors.NewError("transferFiles", err).
				WithBucket(peer.spec.Bucket).
				WithKey(target))
		}
	}

	return result.ErrorOrNil()
}

// detectContentType sniffs the file's content where possible, falling
// back to extension-based lookup.
func (h *Handler) detectContentType(local string) string {
	file, err := h.fs.Open(local)
	if err != nil {
		return detectContentTypeFromExtension(local)
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, _ := file.Read(buf)
	if n > 0 {
		if mt := mimetype.Detect(buf[:n]); mt != nil {
			return mt.String()
		}
	}

	return detectContentTypeFromExtension(local)
}

func detectContentTypeFromExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	return defaultContentType
}
