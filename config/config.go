// Package config loads declarative transfer specifications.
package config

import (
	"fmt"
	"regexp"

	"github.com/spf13/viper"

	xfererrors "github.com/taskrunner-io/transfer/errors"
	"github.com/taskrunner-io/transfer/xfertypes"
)

// LoadSpec reads one endpoint's transfer specification from a JSON or
// YAML file and validates it. The returned spec is complete and immutable;
// handlers take ownership at construction.
func LoadSpec(path string) (*xfertypes.TransferSpec, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read transfer spec %s: %w", path, err)
	}

	var spec xfertypes.TransferSpec
	if err := v.Unmarshal(&spec); err != nil {
		return nil, fmt.Errorf("decode transfer spec %s: %w", path, err)
	}

	if err := Validate(&spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks the structural requirements of a transfer spec.
func Validate(spec *xfertypes.TransferSpec) error {
	if spec.Bucket == "" {
		return xfererrors.NewError("loadSpec", xfererrors.ErrInvalidInput).
			WithMessage("bucket is required")
	}

	pca := spec.PostCopyAction
	if pca == nil {
		return nil
	}

	switch pca.Action {
	case xfertypes.ActionNone:
	case xfertypes.ActionDelete:
	case xfertypes.ActionMove:
		if pca.Destination == "" {
			return xfererrors.NewError("loadSpec", xfererrors.ErrInvalidInput).
				WithBucket(spec.Bucket).
				WithMessage("postCopyAction.destination is required for move")
		}
	case xfertypes.ActionRename:
		if pca.Destination == "" {
			return xfererrors.NewError("loadSpec", xfererrors.ErrInvalidInput).
				WithBucket(spec.Bucket).
				WithMessage("postCopyAction.destination is required for rename")
		}
		if pca.Pattern == "" {
			return xfererrors.NewError("loadSpec", xfererrors.ErrInvalidInput).
				WithBucket(spec.Bucket).
				WithMessage("postCopyAction.pattern is required for rename")
		}
		if _, err := regexp.Compile(pca.Pattern); err != nil {
			return xfererrors.NewError("loadSpec", xfererrors.ErrInvalidInput).
				WithBucket(spec.Bucket).
				WithMessage(fmt.Sprintf("postCopyAction.pattern does not compile: %v", err))
		}
	default:
		return xfererrors.NewError("loadSpec", xfererrors.ErrInvalidInput).
			WithBucket(spec.Bucket).
			WithMessage(fmt.Sprintf("unknown postCopyAction.action %q", pca.Action))
	}

	return nil
}
