package s3

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskrunner-io/transfer"
	"github.com/taskrunner-io/transfer/s3/internal/testutil"
	"github.com/taskrunner-io/transfer/tasklog"
	"github.com/taskrunner-io/transfer/xfertypes"
)

func specWithAction(pca *xfertypes.PostCopyAction) *xfertypes.TransferSpec {
	spec := testSpec()
	spec.PostCopyAction = pca
	return spec
}

func TestHandler_HandlePostCopyAction_None(t *testing.T) {
	mock := &testutil.MockS3Client{}
	h := NewWithClient(testSpec(), mock, nil, tasklog.Nop())

	require.NoError(t, h.HandlePostCopyAction(context.Background(), []string{"incoming/a.csv"}))
	assert.Zero(t, mock.DeleteObjectsCalls)
	assert.Zero(t, mock.CopyObjectCalls)
}

func TestHandler_HandlePostCopyAction_Delete(t *testing.T) {
	mock := &testutil.MockS3Client{
		DeleteObjectsFunc: func(ctx context.Context, params *awss3.DeleteObjectsInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectsOutput, error) {
			assert.Equal(t, "test-bucket", aws.ToString(params.Bucket))
			assert.True(t, aws.ToBool(params.Delete.Quiet), "bulk delete runs in quiet mode")
			var keys []string
			for _, obj := range params.Delete.Objects {
				keys = append(keys, aws.ToString(obj.Key))
			}
			assert.Equal(t, []string{"incoming/a.csv", "incoming/b.csv"}, keys)
			return &awss3.DeleteObjectsOutput{}, nil
		},
	}
	h := NewWithClient(specWithAction(&xfertypes.PostCopyAction{Action: xfertypes.ActionDelete}), mock, nil, tasklog.Nop())

	err := h.HandlePostCopyAction(context.Background(), []string{"incoming/a.csv", "incoming/b.csv"})
	require.NoError(t, err)
	assert.Equal(t, 1, mock.DeleteObjectsCalls, "one bulk call for the whole batch")
}

func TestHandler_HandlePostCopyAction_DeleteErrorsSurface(t *testing.T) {
	mock := &testutil.MockS3Client{
		DeleteObjectsFunc: func(ctx context.Context, params *awss3.DeleteObjectsInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectsOutput, error) {
			return &awss3.DeleteObjectsOutput{
				Errors: []types.Error{{
					Key:     aws.String("incoming/a.csv"),
					Code:    aws.String("AccessDenied"),
					Message: aws.String("access denied"),
				}},
			}, nil
		},
	}
	h := NewWithClient(specWithAction(&xfertypes.PostCopyAction{Action: xfertypes.ActionDelete}), mock, nil, tasklog.Nop())

	err := h.HandlePostCopyAction(context.Background(), []string{"incoming/a.csv"})
	require.Error(t, err, "per-key delete failures must not be swallowed")
	assert.Equal(t, 1, transfer.StatusOf(err))
	assert.Contains(t, err.Error(), "incoming/a.csv")
}

func TestHandler_HandlePostCopyAction_Move(t *testing.T) {
	var ops []string
	mock := &testutil.MockS3Client{
		CopyObjectFunc: func(ctx context.Context, params *awss3.CopyObjectInput, _ ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error) {
			ops = append(ops, "copy "+aws.ToString(params.CopySource)+" -> "+aws.ToString(params.Key))
			return &awss3.CopyObjectOutput{}, nil
		},
		DeleteObjectsFunc: func(ctx context.Context, params *awss3.DeleteObjectsInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectsOutput, error) {
			require.Len(t, params.Delete.Objects, 1)
			ops = append(ops, "delete "+aws.ToString(params.Delete.Objects[0].Key))
			return &awss3.DeleteObjectsOutput{}, nil
		},
	}
	h := NewWithClient(specWithAction(&xfertypes.PostCopyAction{
		Action:      xfertypes.ActionMove,
		Destination: "archive",
	}), mock, nil, tasklog.Nop())

	err := h.HandlePostCopyAction(context.Background(), []string{"incoming/a", "incoming/b"})
	require.NoError(t, err)

	// Each copy strictly precedes its delete.
	assert.Equal(t, []string{
		"copy test-bucket/incoming/a -> archive/a",
		"delete incoming/a",
		"copy test-bucket/incoming/b -> archive/b",
		"delete incoming/b",
	}, ops)
}

func TestHandler_HandlePostCopyAction_Rename(t *testing.T) {
	var copied []string
	var deleted []string
	mock := &testutil.MockS3Client{
		CopyObjectFunc: func(ctx context.Context, params *awss3.CopyObjectInput, _ ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error) {
			copied = append(copied, aws.ToString(params.Key))
			return &awss3.CopyObjectOutput{}, nil
		},
		DeleteObjectsFunc: func(ctx context.Context, params *awss3.DeleteObjectsInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectsOutput, error) {
			deleted = append(deleted, aws.ToString(params.Delete.Objects[0].Key))
			return &awss3.DeleteObjectsOutput{}, nil
		},
	}
	h := NewWithClient(specWithAction(&xfertypes.PostCopyAction{
		Action:      xfertypes.ActionRename,
		Destination: "archive/",
		Pattern:     "^tmp_",
		Sub:         "done_",
	}), mock, nil, tasklog.Nop())

	err := h.HandlePostCopyAction(context.Background(), []string{"incoming/tmp_report.csv"})
	require.NoError(t, err)

	// Regression pin for the reconciled path join: substitution applies to
	// the base name, then a single separator joins it under the
	// destination prefix.
	assert.Equal(t, []string{"archive/done_report.csv"}, copied)
	assert.Equal(t, []string{"incoming/tmp_report.csv"}, deleted)
}

func TestHandler_HandlePostCopyAction_RenamePatternNotMatching(t *testing.T) {
	var copied []string
	mock := &testutil.MockS3Client{
		CopyObjectFunc: func(ctx context.Context, params *awss3.CopyObjectInput, _ ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error) {
			copied = append(copied, aws.ToString(params.Key))
			return &awss3.CopyObjectOutput{}, nil
		},
	}
	h := NewWithClient(specWithAction(&xfertypes.PostCopyAction{
		Action:      xfertypes.ActionRename,
		Destination: "archive",
		Pattern:     "^tmp_",
		Sub:         "done_",
	}), mock, nil, tasklog.Nop())

	err := h.HandlePostCopyAction(context.Background(), []string{"incoming/final_report.csv"})
	require.NoError(t, err)
	assert.Equal(t, []string{"archive/final_report.csv"}, copied, "non-matching names keep their base name")
}

func TestHandler_HandlePostCopyAction_MoveCopyFailureSkipsDelete(t *testing.T) {
	mock := &testutil.MockS3Client{
		CopyObjectFunc: func(ctx context.Context, params *awss3.CopyObjectInput, _ ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error) {
			if strings.HasSuffix(aws.ToString(params.CopySource), "b") {
				return nil, fmt.Errorf("simulated backend error")
			}
			return &awss3.CopyObjectOutput{}, nil
		},
	}
	h := NewWithClient(specWithAction(&xfertypes.PostCopyAction{
		Action:      xfertypes.ActionMove,
		Destination: "archive",
	}), mock, nil, tasklog.Nop())

	err := h.HandlePostCopyAction(context.Background(), []string{"incoming/a", "incoming/b", "incoming/c"})
	require.Error(t, err)
	assert.Equal(t, 3, mock.CopyObjectCalls)
	assert.Equal(t, 2, mock.DeleteObjectsCalls, "a failed copy must leave its original in place")
}

func TestHandler_HandlePostCopyAction_EmptyBatch(t *testing.T) {
	mock := &testutil.MockS3Client{}
	h := NewWithClient(specWithAction(&xfertypes.PostCopyAction{Action: xfertypes.ActionDelete}), mock, nil, tasklog.Nop())

	require.NoError(t, h.HandlePostCopyAction(context.Background(), nil))
	assert.Zero(t, mock.DeleteObjectsCalls)
}
