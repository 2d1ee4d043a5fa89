package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"

	appconfig "github.com/ignite/campaign-engine/internal/config"
	"github.com/ignite/campaign-engine/internal/pkg/logger"
)

// sesAPI is the slice of the SES v2 client the adapter uses; narrowed
// for tests.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	CreateContact(ctx context.Context, params *sesv2.CreateContactInput, optFns ...func(*sesv2.Options)) (*sesv2.CreateContactOutput, error)
	ListContactLists(ctx context.Context, params *sesv2.ListContactListsInput, optFns ...func(*sesv2.Options)) (*sesv2.ListContactListsOutput, error)
}

// SES sends through AWS SES v2 with static credentials.
type SES struct {
	client sesAPI
	region string
	log    *logger.Logger
}

// NewSES creates an SES adapter from static credentials.
func NewSES(ctx context.Context, cfg appconfig.SESConfig) (*SES, error) {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKey,
		cfg.SecretKey,
		"", // session token (empty for static creds)
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SES{
		client: sesv2.NewFromConfig(awsCfg),
		region: cfg.Region,
		log:    logger.WithComponent("SES"),
	}, nil
}

// Name implements Adapter.
func (s *SES) Name() string { return "ses" }

// Send delivers one email via the SendEmail API.
func (s *SES) Send(ctx context.Context, msg *Message) error {
	body := &types.Body{
		Html: &types.Content{Data: aws.String(msg.HTML)},
	}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text)}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body:    body,
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return classifySESError(err)
	}

	s.log.Debug("sent", "recipient", logger.RedactEmail(msg.To))
	return nil
}

// CampaignStats implements Adapter. SES VDM metrics are account-wide,
// not per campaign, so per-campaign stats are unsupported here.
func (s *SES) CampaignStats(ctx context.Context, campaignID string) (*Stats, error) {
	return nil, fmt.Errorf("ses: per-campaign stats not supported")
}

// CreateContact upserts a contact into the default contact list.
func (s *SES) CreateContact(ctx context.Context, email string) (string, error) {
	_, err := s.client.CreateContact(ctx, &sesv2.CreateContactInput{
		ContactListName: aws.String("default"),
		EmailAddress:    aws.String(email),
	})
	if err != nil {
		var already *types.AlreadyExistsException
		if !errors.As(err, &already) {
			return "", fmt.Errorf("ses: create contact: %w", err)
		}
	}
	// SES keys contacts on email address within a list.
	return email, nil
}

// AddToList adds the contact to the named contact list.
func (s *SES) AddToList(ctx context.Context, contactID, listID string) error {
	_, err := s.client.CreateContact(ctx, &sesv2.CreateContactInput{
		ContactListName: aws.String(listID),
		EmailAddress:    aws.String(contactID),
	})
	if err != nil {
		var already *types.AlreadyExistsException
		if errors.As(err, &already) {
			return nil
		}
		return fmt.Errorf("ses: add to list: %w", err)
	}
	return nil
}

// ListSegments returns the account's SES contact lists.
func (s *SES) ListSegments(ctx context.Context) ([]List, error) {
	out, err := s.client.ListContactLists(ctx, &sesv2.ListContactListsInput{})
	if err != nil {
		return nil, fmt.Errorf("ses: list contact lists: %w", err)
	}
	lists := make([]List, 0, len(out.ContactLists))
	for _, cl := range out.ContactLists {
		name := aws.ToString(cl.ContactListName)
		lists = append(lists, List{ID: name, Name: name})
	}
	return lists, nil
}

// classifySESError maps an SDK error onto the shared retryable /
// permanent classification. Throttling and server faults retry;
// validation and account-state faults do not.
func classifySESError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.(type) {
		case *types.TooManyRequestsException, *types.LimitExceededException:
			return &Error{Message: fmt.Sprintf("ses: send: %v", err), Status: 429, Retryable: true}
		case *types.BadRequestException, *types.MessageRejected,
			*types.MailFromDomainNotVerifiedException, *types.AccountSuspendedException,
			*types.SendingPausedException, *types.NotFoundException:
			return &Error{Message: fmt.Sprintf("ses: send: %v", err), Status: 400, Retryable: false}
		}
	}
	return Classify(0, "ses: send: %v", err)
}
