// Package transfer defines the remote transfer handler contract shared by
// every backend implementation.
//
// A task orchestration engine drives handlers through a fixed sequence:
// list candidate files, move them with one of the three transfer
// directions, then apply the configured post-copy disposition to the
// transferred set. Control never flows the other way. Each handler
// instance is constructed fresh for one task run, owns its backend client
// exclusively, and is torn down with Tidy on every exit path.
package transfer

import (
	"context"

	"github.com/taskrunner-io/transfer/xfertypes"
)

// Kind tags a handler's backend type. The peer-to-peer copy path uses it
// to decide whether a native server-side copy is possible; handlers must
// never rely on structural type identity for that check.
type Kind string

const (
	// KindS3 is an S3-compatible object store backend.
	KindS3 Kind = "s3"

	// KindLocal is a local-disk backend.
	KindLocal Kind = "local"
)

// RemoteHandler is the polymorphic contract implemented once per backend
// and used uniformly by the orchestration engine.
//
// Batch operations attempt every file exactly once: per-file failures are
// logged, accumulated and reported as a single non-nil error after the
// whole batch has run. They never abort early, so cancellation mid-batch
// is not supported.
type RemoteHandler interface {
	// Kind returns the backend type tag.
	Kind() Kind

	// ListFiles enumerates remote objects under the optional prefix whose
	// leaf names full-match the optional pattern. It returns a nil FileSet
	// when the prefix matched no objects at all, and a non-nil empty one
	// when objects existed but none passed the filter.
	ListFiles(ctx context.Context, prefix, pattern string) (xfertypes.FileSet, error)

	// PushFilesFromWorker uploads every file directly inside the flat
	// local staging directory to the configured destination prefix.
	PushFilesFromWorker(ctx context.Context, stagingDir string) error

	// PullFilesToWorker downloads the given remote keys into the local
	// staging directory, named by each key's base name.
	PullFilesToWorker(ctx context.Context, files []string, stagingDir string) error

	// TransferFiles copies the given keys directly to the destination
	// handler without staging through local disk. It fails with
	// errors.ErrUnsupportedTransferPair when the destination is a
	// different backend type.
	TransferFiles(ctx context.Context, files []string, dest RemoteHandler) error

	// HandlePostCopyAction applies the spec's post-copy disposition
	// (delete, move or rename) to the given transferred keys.
	HandlePostCopyAction(ctx context.Context, files []string) error

	// MoveFilesToFinalLocation relocates staged files to their final
	// placement. Only backends that stage through an intermediate area
	// implement it; others fail with errors.ErrNotSupported.
	MoveFilesToFinalLocation(ctx context.Context, files []string) error

	// Tidy releases backend-specific connections. Safe to call once the
	// task run is over regardless of which exit path was taken.
	Tidy() error
}

// StatusOf maps a batch error to the coarse integer status the
// orchestration engine consumes: 0 when every item succeeded, 1 when at
// least one failed.
func StatusOf(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
