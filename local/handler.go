// Package local implements the remote transfer handler for local-disk
// destinations. It is the staging-capable counterpart to the object-store
// handler and the concrete "different backend type" in peer-to-peer
// transfer pairings.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/hashicorp/go-multierror"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/rs/zerolog"

	"github.com/taskrunner-io/transfer"
	xfererrors "github.com/taskrunner-io/transfer/errors"
	"github.com/taskrunner-io/transfer/xfertypes"
)

// Handler is the local-disk implementation of transfer.RemoteHandler.
// Directory is the final placement area; files pushed from a worker are
// staged under a hidden staging subdirectory until
// MoveFilesToFinalLocation relocates them.
type Handler struct {
	dir    string
	pca    *xfertypes.PostCopyAction
	fs     fs.Filesystem
	logger zerolog.Logger
}

var _ transfer.RemoteHandler = (*Handler)(nil)

// stagingSubdir holds pushed files until they are moved to their final
// location.
const stagingSubdir = ".staging"

// New builds a handler rooted at dir on the OS filesystem.
func New(dir string, pca *xfertypes.PostCopyAction, logger zerolog.Logger) *Handler {
	return NewWithFS(dir, pca, billy.NewOSFS("/"), logger)
}

// NewWithFS is New with an explicit filesystem, for tests.
func NewWithFS(dir string, pca *xfertypes.PostCopyAction, filesystem fs.Filesystem, logger zerolog.Logger) *Handler {
	return &Handler{
		dir:    dir,
		pca:    pca,
		fs:     filesystem,
		logger: logger.With().Str("handler", string(transfer.KindLocal)).Str("dir", dir).Logger(),
	}
}

// Kind returns the backend type tag.
func (h *Handler) Kind() transfer.Kind {
	return transfer.KindLocal
}

// ListFiles enumerates regular files directly under dir/prefix whose
// names full-match the optional pattern. A nil FileSet means the prefix
// held no files at all; a non-nil empty one means files existed but none
// matched.
func (h *Handler) ListFiles(ctx context.Context, prefix, pattern string) (xfertypes.FileSet, error) {
	var re *regexp.Regexp
	if pattern != "" {
		var err error
		re, err = regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, xfererrors.NewError("listFiles", xfererrors.ErrInvalidInput).
				WithMessage("file pattern does not compile: " + err.Error())
		}
	}

	dir := filepath.Join(h.dir, prefix)
	entries, err := h.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, xfererrors.NewError("listFiles", err).WithKey(dir)
	}

	var regular []os.FileInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			regular = append(regular, entry)
		}
	}
	if len(regular) == 0 {
		return nil, nil
	}

	found := make(xfertypes.FileSet)
	for _, entry := range regular {
		h.logger.Debug().Str("file", entry.Name()).Msg("found file")
		if re != nil && !re.MatchString(entry.Name()) {
			continue
		}
		found[filepath.Join(dir, entry.Name())] = xfertypes.RemoteFile{
			Size:     entry.Size(),
			Modified: entry.ModTime(),
		}
	}
	return found, nil
}

// PushFilesFromWorker copies every file directly inside the staging
// directory into this handler's staging area, to be finalized by
// MoveFilesToFinalLocation. Per-file failures accumulate.
func (h *Handler) PushFilesFromWorker(ctx context.Context, stagingDir string) error {
	entries, err := h.fs.ReadDir(stagingDir)
	if err != nil {
		return xfererrors.NewError("pushFilesFromWorker", err).WithKey(stagingDir)
	}

	dest := filepath.Join(h.dir, stagingSubdir)
	if err := h.fs.MkdirAll(dest, 0o755); err != nil {
		return xfererrors.NewError("pushFilesFromWorker", err).WithKey(dest)
	}

	var result *multierror.Error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(stagingDir, entry.Name())
		h.logger.Debug().Str("file", src).Msg("transferring file")
		if err := h.copyFile(src, filepath.Join(dest, entry.Name())); err != nil {
			h.logger.Error().Err(err).Str("file", src).Msg("failed to transfer file")
			result = multierror.Append(result, xfererrors.NewError("pushFilesFromWorker", err).WithKey(src))
		}
	}
	return result.ErrorOrNil()
}

// PullFilesToWorker copies each given path into the worker's staging
// directory under its base name.
func (h *Handler) PullFilesToWorker(ctx context.Context, files []string, stagingDir string) error {
	var result *multierror.Error
	for _, file := range files {
		h.logger.Debug().Str("file", file).Msg("transferring file")
		if err := h.copyFile(file, filepath.Join(stagingDir, filepath.Base(file))); err != nil {
			h.logger.Error().Err(err).Str("file", file).Msg("failed to transfer file")
			result = multierror.Append(result, xfererrors.NewError("pullFilesToWorker", err).WithKey(file))
		}
	}
	return result.ErrorOrNil()
}

// TransferFiles copies the given paths into the destination handler's
// directory when it is also local-disk; any other pairing is unsupported.
func (h *Handler) TransferFiles(ctx context.Context, files []string, dest transfer.RemoteHandler) error {
	if dest == nil || dest.Kind() != transfer.KindLocal {
		return xfererrors.NewError("transferFiles", xfererrors.ErrUnsupportedTransferPair)
	}
	peer, ok := dest.(*Handler)
	if !ok {
		return xfererrors.NewError("transferFiles", xfererrors.ErrUnsupportedTransferPair)
	}

	var result *multierror.Error
	for _, file := range files {
		target := filepath.Join(peer.dir, filepath.Base(file))
		h.logger.Debug().Str("file", file).Str("key", target).Msg("transferring file")
		if err := h.copyFile(file, target); err != nil {
			h.logger.Error().Err(err).Str("file", file).Msg("error transferring file")
			result = multierror.Append(result, xfererrors.NewError("transferFiles", err).WithKey(target))
		}
	}
	return result.ErrorOrNil()
}

// HandlePostCopyAction applies the configured disposition to the given
// paths: delete removes them, move and rename copy-then-delete into the
// destination directory.
func (h *Handler) HandlePostCopyAction(ctx context.Context, files []string) error {
	if h.pca == nil || h.pca.Action == xfertypes.ActionNone || len(files) == 0 {
		return nil
	}

	var re *regexp.Regexp
	if h.pca.Action == xfertypes.ActionRename {
		var err error
		re, err = regexp.Compile(h.pca.Pattern)
		if err != nil {
			return xfererrors.NewError("handlePostCopyAction", xfererrors.ErrInvalidInput).
				WithMessage("rename pattern does not compile: " + err.Error())
		}
	}

	var result *multierror.Error
	for _, file := range files {
		var err error
		switch h.pca.Action {
		case xfertypes.ActionDelete:
			err = h.fs.Remove(file)
		case xfertypes.ActionMove, xfertypes.ActionRename:
			newBase := filepath.Base(file)
			if re != nil {
				newBase = re.ReplaceAllString(newBase, h.pca.Sub)
			}
			err = h.relocate(file, filepath.Join(h.pca.Destination, newBase))
		default:
			err = fmt.Errorf("%w: unknown action %q", xfererrors.ErrInvalidInput, h.pca.Action)
		}
		if err != nil {
			h.logger.Error().Err(err).Str("file", file).Msg("post copy action failed")
			result = multierror.Append(result, xfererrors.NewError("handlePostCopyAction", err).WithKey(file))
		}
	}
	return result.ErrorOrNil()
}

// MoveFilesToFinalLocation relocates staged files into the handler's
// directory. Files are named by base name regardless of where they were
// staged.
func (h *Handler) MoveFilesToFinalLocation(ctx context.Context, files []string) error {
	var result *multierror.Error
	for _, file := range files {
		target := filepath.Join(h.dir, filepath.Base(file))
		h.logger.Debug().Str("file", file).Str("key", target).Msg("finalizing file")
		if err := h.relocate(file, target); err != nil {
			h.logger.Error().Err(err).Str("file", file).Msg("failed to finalize file")
			result = multierror.Append(result, xfererrors.NewError("moveFilesToFinalLocation", err).WithKey(file))
		}
	}
	return result.ErrorOrNil()
}

// Tidy is a no-op: the handler holds no connections.
func (h *Handler) Tidy() error {
	return nil
}

// relocate copies src to dst and removes the original, copy preceding
// delete. A failure in between leaves a duplicate, never lost data.
func (h *Handler) relocate(src, dst string) error {
	if err := h.copyFile(src, dst); err != nil {
		return err
	}
	return h.fs.Remove(src)
}

func (h *Handler) copyFile(src, dst string) error {
	data, err := h.fs.ReadFile(src)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(dst); dir != "." {
		if err := h.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return h.fs.WriteFile(dst, data, 0o644)
}
