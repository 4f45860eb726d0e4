package signer

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"direct2url/internal/storage"
)

// loadAWSConfig is swapped in tests.
var loadAWSConfig = config.LoadDefaultConfig

type s3Presigner struct {
	presigner *s3.PresignClient
	bucket    string
}

func newS3Presigner(ctx context.Context, v storage.Variant) (Presigner, error) {
	c, ok := v.(storage.S3Config)
	if !ok {
		return nil, fmt.Errorf("expected S3 credentials, got %T", v)
	}

	cfg, err := loadAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)),
		// S3-compatible endpoints reject the default flexible checksums.
		config.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3Presigner{
		presigner: s3.NewPresignClient(client),
		bucket:    c.Bucket,
	}, nil
}

// PresignPut generates a presigned URL for a PutObject of key with the
// Content-Type header included in the signature.
func (p *s3Presigner) PresignPut(ctx context.Context, key, contentType string, w Window) (string, error) {
	// X-Amz-Expires counts from the signing instant
	expires := time.Until(w.Expiry)
	if expires <= 0 {
		return "", fmt.Errorf("credential window ended at %s", w.Expiry.Format(time.RFC3339))
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}

	request, err := p.presigner.PresignPutObject(ctx, input, func(opts *s3.PresignOptions) {
		opts.Expires = expires
		opts.ClientOptions = append(opts.ClientOptions, func(o *s3.Options) {
			o.APIOptions = append(o.APIOptions, func(stack *middleware.Stack) error {
				return stack.Finalize.Add(signContentType{contentType: contentType}, middleware.Before)
			})
		})
	})
	if err != nil {
		return "", err
	}

	return request.URL, nil
}

// signContentType puts Content-Type back on the request before signing. The
// presign stack drops it from bodyless requests, which would leave the URL
// valid for any content type.
type signContentType struct {
	contentType string
}

func (signContentType) ID() string { return "SignContentType" }

func (m signContentType) HandleFinalize(ctx context.Context, in middleware.FinalizeInput, next middleware.FinalizeHandler) (
	middleware.FinalizeOutput, middleware.Metadata, error,
) {
	req, ok := in.Request.(*smithyhttp.Request)
	if !ok {
		return middleware.FinalizeOutput{}, middleware.Metadata{}, fmt.Errorf("unexpected transport type %T", in.Request)
	}
	req.Header.Set("Content-Type", m.contentType)
	return next.HandleFinalize(ctx, in)
}
