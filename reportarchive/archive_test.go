package reportarchive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/programme-lv/scorer/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStore) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	content, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = content
	f.types[*in.Bucket+"/"+*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeStore) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	content, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(content))}, nil
}

func sampleReport(t *testing.T) scoring.ScoreReport {
	t.Helper()
	params := []scoring.SubtaskParam{
		{MaxScore: 30, TestcaseCodes: []string{"t1"}, Threshold: 1},
		{MaxScore: 70, TestcaseCodes: []string{"t2", "t3"}, Threshold: 1},
	}
	res := scoring.SubmissionResult{
		Evaluated: true,
		Evaluations: []scoring.Evaluation{
			{Codename: "t1", Outcome: 1, Text: scoring.Text{Template: "Output is correct"}},
			{Codename: "t2", Outcome: 1, Text: scoring.Text{Template: "Output is correct"}},
			{Codename: "t3", Outcome: 0, Text: scoring.Text{Template: "Output isn't correct"}},
		},
		ScorePrecision:  2,
		PublicTestcases: map[string]bool{"t1": true},
	}
	report, err := scoring.BuildReport(scoring.SharedGroupThreshold{}, res, params)
	require.NoError(t, err)
	return report
}

func TestEncodeDecode(t *testing.T) {
	report := sampleReport(t)
	content, err := Encode(report)
	require.NoError(t, err)

	decoded, err := Decode(content)
	require.NoError(t, err)
	assert.Equal(t, report, decoded)

	_, err = Decode([]byte("{\"score\": 1}"))
	assert.Error(t, err)
}

func TestS3ArchivePutGet(t *testing.T) {
	store := newFakeStore()
	archive := &S3Archive{client: store, bucket: "proglv-score-reports"}
	submUUID := uuid.New()
	report := sampleReport(t)

	require.NoError(t, archive.Put(context.Background(), submUUID, report))
	key := "proglv-score-reports/" + Key(submUUID)
	require.Contains(t, store.objects, key)
	assert.Equal(t, "application/zstd", store.types[key])

	got, err := archive.Get(context.Background(), submUUID)
	require.NoError(t, err)
	assert.Equal(t, report, got)

	_, err = archive.Get(context.Background(), uuid.New())
	assert.Error(t, err)
}
