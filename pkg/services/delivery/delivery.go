// Package delivery ships the master workbook at run end: e-mail over
// SMTP with STARTTLS and upload to the staging bucket. Failures are
// logged and never fail the run.
package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider/awsconf"
)

// S3API is the upload surface the service needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// MailSender sends assembled messages. gomail's Dialer implements it.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Service delivers the workbook through the configured channels.
type Service struct {
	cfg    domain.Config
	sender MailSender
	bucket S3API
}

// Option configures the service, used by tests to inject fakes.
type Option func(*Service)

// WithSender injects a mail sender.
func WithSender(sender MailSender) Option {
	return func(s *Service) { s.sender = sender }
}

// WithBucket injects an object-store client.
func WithBucket(client S3API) Option {
	return func(s *Service) { s.bucket = client }
}

// New builds the service.
func New(cfg domain.Config, opts ...Option) *Service {
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliver runs every configured channel and returns the per-channel
// failures. The caller logs them; nothing here is fatal.
func (s *Service) Deliver(ctx context.Context, recipient, workbookPath string) []error {
	logger := zerolog.Ctx(ctx)
	var errs []error

	if recipient != "" {
		if !s.cfg.SMTP.Configured() {
			logger.Warn().Str("recipient", recipient).Msg("e-mail requested but SMTP is not configured")
		} else if err := s.Email(recipient, workbookPath); err != nil {
			logger.Error().Err(err).Msg("e-mail delivery failed")
			errs = append(errs, err)
		} else {
			logger.Info().Str("recipient", recipient).Msg("workbook sent by e-mail")
		}
	}

	if s.cfg.StagingBucket != "" {
		if err := s.Upload(ctx, workbookPath); err != nil {
			logger.Error().Err(err).Msg("workbook upload failed")
			errs = append(errs, err)
		} else {
			logger.Info().Str("bucket", s.cfg.StagingBucket).Msg("workbook uploaded")
		}
	}
	return errs
}

// Email sends the workbook as an attachment. The dialer negotiates
// STARTTLS when the server offers it.
func (s *Service) Email(recipient, workbookPath string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.SMTP.From)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", fmt.Sprintf("Cost report for account %s", s.cfg.AccountID))
	m.SetBody("text/plain", "The attached workbook holds the estimated monthly savings for your account.")
	m.Attach(workbookPath)

	sender := s.sender
	if sender == nil {
		sender = gomail.NewDialer(s.cfg.SMTP.Host, s.cfg.SMTP.Port, s.cfg.SMTP.Username, s.cfg.SMTP.Password)
	}
	if err := sender.DialAndSend(m); err != nil {
		return domain.DeliveryError{Via: "smtp", Err: err}
	}
	return nil
}

// Upload puts the workbook into the staging bucket under reports/.
func (s *Service) Upload(ctx context.Context, workbookPath string) error {
	client := s.bucket
	if client == nil {
		awsCfg, err := awsconf.LoadConfig(ctx, s.cfg.Profile, awsconf.DefaultRegion)
		if err != nil {
			return domain.DeliveryError{Via: "s3", Err: err}
		}
		client = s3.NewFromConfig(*awsCfg)
	}

	file, err := os.Open(workbookPath)
	if err != nil {
		return domain.DeliveryError{Via: "s3", Err: err}
	}
	defer file.Close()

	key := "reports/" + filepath.Base(workbookPath)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.StagingBucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return domain.DeliveryError{Via: "s3", Err: err}
	}
	return nil
}
