package reportarchive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/programme-lv/scorer/scoring"
	"github.com/programme-lv/scorer/srvcerror"
)

const mediaType = "application/zstd"

// objectStore is the part of the S3 client the archive uses.
type objectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Archive stores zstd compressed JSON score reports in a bucket,
// one object per submission.
type S3Archive struct {
	client objectStore
	bucket string
}

func NewS3Archive(ctx context.Context, region string, bucket string) (*S3Archive, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &S3Archive{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

func Key(submUUID uuid.UUID) string {
	return fmt.Sprintf("score-reports/%s.json.zst", submUUID)
}

func (a *S3Archive) Put(ctx context.Context, submUUID uuid.UUID, report scoring.ScoreReport) error {
	content, err := Encode(report)
	if err != nil {
		return err
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(Key(submUUID)),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(mediaType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload score report: %w", err)
	}
	return nil
}

func (a *S3Archive) Get(ctx context.Context, submUUID uuid.UUID) (scoring.ScoreReport, error) {
	output, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(Key(submUUID)),
	})
	if err != nil {
		var responseError *awshttp.ResponseError
		if errors.As(err, &responseError) && responseError.HTTPStatusCode() == http.StatusNotFound {
			return scoring.ScoreReport{}, srvcerror.ErrReportNotFound().SetDebug(err)
		}
		return scoring.ScoreReport{}, fmt.Errorf("failed to download score report: %w", err)
	}
	defer output.Body.Close()

	content, err := io.ReadAll(output.Body)
	if err != nil {
		return scoring.ScoreReport{}, fmt.Errorf("failed to read score report: %w", err)
	}
	return Decode(content)
}

func Encode(report scoring.ScoreReport) ([]byte, error) {
	jsonReport, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score report: %w", err)
	}

	zstdEncoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer zstdEncoder.Close()

	return zstdEncoder.EncodeAll(jsonReport, make([]byte, 0, len(jsonReport))), nil
}

func Decode(content []byte) (scoring.ScoreReport, error) {
	zstdDecoder, err := zstd.NewReader(nil)
	if err != nil {
		return scoring.ScoreReport{}, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer zstdDecoder.Close()

	jsonReport, err := zstdDecoder.DecodeAll(content, nil)
	if err != nil {
		return scoring.ScoreReport{}, fmt.Errorf("failed to decompress score report: %w", err)
	}

	var report scoring.ScoreReport
	if err := json.Unmarshal(jsonReport, &report); err != nil {
		return scoring.ScoreReport{}, fmt.Errorf("failed to unmarshal score report: %w", err)
	}
	return report, nil
}
