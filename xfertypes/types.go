// Package xfertypes provides shared type definitions for the transfer module.
package xfertypes

import "time"

// Action values accepted in a PostCopyAction.
const (
	// ActionNone leaves source files untouched after a transfer.
	ActionNone = ""

	// ActionDelete removes source files with a single bulk delete.
	ActionDelete = "delete"

	// ActionMove relocates each source file under the destination prefix.
	ActionMove = "move"

	// ActionRename relocates each source file under the destination prefix
	// after rewriting its base name with a pattern substitution.
	ActionRename = "rename"
)

// TransferSpec describes one endpoint of a transfer. It is built once per
// task run from declarative config and never mutated afterwards; each
// remote handler instance owns its spec exclusively.
type TransferSpec struct {
	// Bucket is the container identifier within the backend.
	Bucket string `mapstructure:"bucket" json:"bucket"`

	// Directory is the key prefix files are written under.
	Directory string `mapstructure:"directory" json:"directory"`

	// Protocol carries backend access configuration.
	Protocol ProtocolSpec `mapstructure:"protocol" json:"protocol"`

	// PostCopyAction is the disposition applied to source files once a
	// transfer batch completes. Nil means no action.
	PostCopyAction *PostCopyAction `mapstructure:"postCopyAction" json:"postCopyAction,omitempty"`
}

// ProtocolSpec holds credentials and backend flags. Credentials and region
// fall back to environment-sourced values when absent.
type ProtocolSpec struct {
	AccessKeyID     string `mapstructure:"access_key_id" json:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" json:"secret_access_key,omitempty"`
	RegionName      string `mapstructure:"region_name" json:"region_name,omitempty"`

	// BucketOwnerFullControl attaches the bucket-owner-full-control ACL to
	// uploaded objects. Defaults to true when unset.
	BucketOwnerFullControl *bool `mapstructure:"bucket_owner_full_control" json:"bucket_owner_full_control,omitempty"`
}

// OwnerFullControl reports the effective value of the ownership-control
// flag, applying the default when the spec leaves it unset.
func (p ProtocolSpec) OwnerFullControl() bool {
	return p.BucketOwnerFullControl == nil || *p.BucketOwnerFullControl
}

// PostCopyAction describes what happens to source files after transfer.
type PostCopyAction struct {
	// Action is one of ActionNone, ActionDelete, ActionMove, ActionRename.
	Action string `mapstructure:"action" json:"action"`

	// Destination is the prefix move and rename place files under.
	Destination string `mapstructure:"destination" json:"destination,omitempty"`

	// Pattern and Sub drive the regexp substitution applied to each base
	// name during a rename.
	Pattern string `mapstructure:"pattern" json:"pattern,omitempty"`
	Sub     string `mapstructure:"sub" json:"sub,omitempty"`
}

// RemoteFile holds the metadata recorded for one listed object.
type RemoteFile struct {
	// Size of the object in bytes.
	Size int64

	// Modified is the object's last-modified time.
	Modified time.Time
}

// FileSet maps fully qualified object keys to their metadata. It is the
// result of one listing operation.
//
// A nil FileSet means the listing prefix matched no objects at all; a
// non-nil empty FileSet means objects existed but none passed the name
// filter. Callers branch on that distinction.
type FileSet map[string]RemoteFile

// Keys returns the object keys of the set in unspecified order.
func (fs FileSet) Keys() []string {
	keys := make([]string, 0, len(fs))
	for k := range fs {
		keys = append(keys, k)
	}
	return keys
}
