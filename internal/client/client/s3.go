package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/memoria/internal/client/models"
	"github.com/dmitrijs2005/memoria/internal/common"
	"github.com/google/uuid"
)

// S3Config selects the bucket that receives direct uploads.
type S3Config struct {
	Region        string
	Endpoint      string
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// S3Uploader stores media straight into an S3-compatible bucket and reports
// the public object URL in a synthetic success envelope, so callers treat
// both upload backends the same way.
type S3Uploader struct {
	client     putObjectAPI
	bucket     string
	publicBase string
	now        func() time.Time
}

func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if strings.TrimSpace(cfg.PublicBaseURL) == "" {
		return nil, errors.New("s3 public base url is required")
	}
	if u, err := url.Parse(cfg.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("s3 public base url %q must be absolute", cfg.PublicBaseURL)
	}

	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
		// Retries are owned by the upload manager.
		o.RetryMaxAttempts = 1
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return &S3Uploader{client: c, bucket: cfg.Bucket, publicBase: cfg.PublicBaseURL, now: time.Now}, nil
}

// ObjectKey lays objects out by kind and upload date.
func ObjectKey(now time.Time, kind models.Kind, name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	return fmt.Sprintf("media/%s/%04d/%02d/%02d/%s%s", kind, now.Year(), now.Month(), now.Day(), uuid.New(), ext)
}

func (u *S3Uploader) Upload(ctx context.Context, req UploadRequest, onProgress ProgressFunc) (models.Envelope, error) {
	f, err := os.Open(req.File.Ref)
	if err != nil {
		return models.Envelope{}, &common.UploadError{Kind: common.KindValidation, Message: "cannot open local file", Err: err}
	}
	defer f.Close()

	size := req.File.Size
	if size <= 0 {
		st, err := f.Stat()
		if err != nil {
			return models.Envelope{}, &common.UploadError{Kind: common.KindValidation, Message: "cannot stat local file", Err: err}
		}
		size = st.Size()
	}

	name := req.File.Name
	if name == "" {
		name = filepath.Base(req.File.Ref)
	}
	key := ObjectKey(u.now(), req.File.Kind, name)

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	body := &countingReader{r: f, tracker: newProgressTracker(ctx, size, onProgress)}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	}, s3.WithAPIOptions(v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware))
	if err != nil {
		return models.Envelope{}, mapS3Error(err)
	}

	data, err := json.Marshal(models.MediaFile{
		ID:       key,
		URL:      strings.TrimRight(u.publicBase, "/") + "/" + key,
		FileType: string(req.File.Kind),
		FileName: name,
		FileSize: size,
	})
	if err != nil {
		return models.Envelope{}, err
	}

	return models.Envelope{Code: 0, Message: "ok", Data: data}, nil
}

func mapS3Error(err error) error {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		if re.HTTPStatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %v", common.ErrNetwork, err)
		}
		return fmt.Errorf("%w: %v", common.ErrServer, err)
	}
	return mapError(err)
}
