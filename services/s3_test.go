package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closetapi/apperrors"
)

type fakePutObject struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakePutObject) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(params.Body)
	f.inputs = append(f.inputs, params)
	f.bodies = append(f.bodies, body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestArchiveFailure(t *testing.T) {
	client := &fakePutObject{}
	service := &AWSService{Client: client, BucketName: "closet-failures", Prefix: "model-failures"}

	err := service.ArchiveFailure(context.Background(), FailureRecord{
		Operation: OperationOutfit,
		Kind:      apperrors.KindComposition,
		Message:   "cardinality: category top, count 2",
		Raw:       `{"outfit": []}`,
		Attempt:   1,
		CreatedAt: time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, client.inputs, 1)

	input := client.inputs[0]
	assert.Equal(t, "closet-failures", *input.Bucket)
	assert.Equal(t, "application/json", *input.ContentType)
	assert.Regexp(t, regexp.MustCompile(`^model-failures/outfit/2026-10-15/COMPOSITION-[0-9a-f-]{36}\.json$`), *input.Key)

	var stored FailureRecord
	require.NoError(t, json.Unmarshal(client.bodies[0], &stored))
	assert.Equal(t, `{"outfit": []}`, stored.Raw)
	assert.Equal(t, apperrors.KindComposition, stored.Kind)
}

func TestArchiveFailure_PutError(t *testing.T) {
	service := &AWSService{Client: &fakePutObject{err: errors.New("access denied")}, BucketName: "b", Prefix: "p"}
	err := service.ArchiveFailure(context.Background(), FailureRecord{Operation: OperationTag, Kind: apperrors.KindDecode})
	assert.ErrorContains(t, err, "access denied")
}
