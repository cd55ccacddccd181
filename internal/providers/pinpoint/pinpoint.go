package pinpoint

import (
	"context"
	"errors"

	"github.com/adminguard/adminguard/pkg/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/pinpoint"
	"github.com/aws/aws-sdk-go-v2/service/pinpoint/types"
)

const (
	providerID = "pinpoint"
	maxOTPLen  = 6
)

// Email implements an AWS Pinpoint e-mail channel provider.
type Email struct {
	cfg Config
	p   *pinpoint.Client
}

type Config struct {
	ApplicationID string `json:"application_id"`
	AccessKey     string `json:"access_key"`
	SecretKey     string `json:"secret_key"`
	Region        string `json:"region"`
	FromAddress   string `json:"from_address"`
	Charset       string `json:"charset"`
}

// NewEmail returns a Pinpoint provider that delivers OTP e-mails via
// the Pinpoint e-mail channel.
func NewEmail(cfg Config) (*Email, error) {
	if cfg.ApplicationID == "" {
		return nil, errors.New("invalid application_id")
	}
	if cfg.Region == "" {
		return nil, errors.New("invalid region")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("invalid access_key")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("invalid secret_key")
	}
	if cfg.FromAddress == "" {
		return nil, errors.New("invalid from_address")
	}
	if cfg.Charset == "" {
		cfg.Charset = "UTF-8"
	}

	cfgAws, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	return &Email{cfg: cfg, p: pinpoint.NewFromConfig(cfgAws)}, nil
}

// ID returns the Provider's ID.
func (p *Email) ID() string {
	return providerID
}

// ValidateAddress "validates" an e-mail address. Pinpoint rejects
// malformed addresses on send, so only an empty address is refused here.
func (p *Email) ValidateAddress(to string) error {
	if to == "" {
		return errors.New("invalid e-mail address")
	}
	return nil
}

// Push sends the OTP e-mail through the Pinpoint e-mail channel.
func (p *Email) Push(msg models.Message, subject string, body []byte) error {
	input := &pinpoint.SendMessagesInput{
		ApplicationId: aws.String(p.cfg.ApplicationID),
		MessageRequest: &types.MessageRequest{
			Addresses: map[string]types.AddressConfiguration{
				msg.To: {
					ChannelType: types.ChannelTypeEmail,
				},
			},
			MessageConfiguration: &types.DirectMessageConfiguration{
				EmailMessage: &types.EmailMessage{
					FromAddress: aws.String(p.cfg.FromAddress),
					SimpleEmail: &types.SimpleEmail{
						Subject: &types.SimpleEmailPart{
							Charset: aws.String(p.cfg.Charset),
							Data:    aws.String(subject),
						},
						HtmlPart: &types.SimpleEmailPart{
							Charset: aws.String(p.cfg.Charset),
							Data:    aws.String(string(body)),
						},
					},
				},
			},
		},
	}

	_, err := p.p.SendMessages(context.TODO(), input)
	return err
}

// MaxOTPLen returns the maximum allowed length of the OTP value.
func (p *Email) MaxOTPLen() int {
	return maxOTPLen
}
