package media

import (
	"context"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store 远端图片存储边界。库里只存裸文件名，完整 URL 由前端拼。
type Store interface {
	UploadImage(ctx context.Context, localPath, desiredName string) (string, error)
	DefaultAvatarPath() string
	// NormalizeRef 把完整远端 URL 剥成裸文件名
	NormalizeRef(ref string) string
}

type S3Options struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Folder        string
	BaseURL       string
	DefaultAvatar string
}

type S3Store struct {
	client *s3.Client
	opt    S3Options
}

func NewS3Store(ctx context.Context, opt S3Options) (*S3Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opt.Region),
	}
	if opt.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opt.AccessKey, opt.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opt.Endpoint != "" {
			o.BaseEndpoint = aws.String(opt.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, opt: opt}, nil
}

func (s *S3Store) UploadImage(ctx context.Context, localPath, desiredName string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	key := desiredName
	if s.opt.Folder != "" {
		key = s.opt.Folder + "/" + desiredName
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.opt.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", err
	}
	return desiredName, nil
}

func (s *S3Store) DefaultAvatarPath() string { return s.opt.DefaultAvatar }

func (s *S3Store) NormalizeRef(ref string) string {
	out := ref
	if s.opt.BaseURL != "" {
		out = strings.TrimPrefix(out, s.opt.BaseURL)
		out = strings.TrimPrefix(out, "/")
	}
	if s.opt.Folder != "" {
		out = strings.TrimPrefix(out, s.opt.Folder+"/")
	}
	if i := strings.LastIndexByte(out, '/'); i >= 0 {
		out = out[i+1:]
	}
	return out
}
