package workflow

import (
	"context"
	"fmt"
	"strings"
)

// dependencyRule maps keywords to an external-service category.
type dependencyRule struct {
	Type            string
	Keywords        []string
	Category        string
	MockStrategy    string
	RequiresSecrets bool
}

// dependencyRules is scanned in order; each type matches at most once.
// Some keywords keep a trailing space so that "s3 " does not match "s3cret".
var dependencyRules = []dependencyRule{
	{
		Type:            "payment",
		Keywords:        []string{"stripe", "paypal", "braintree", "payment gateway", "credit card", "billing"},
		Category:        "payment_processing",
		MockStrategy:    "Use test/sandbox API keys or mock payment service",
		RequiresSecrets: true,
	},
	{
		Type:            "email",
		Keywords:        []string{"sendgrid", "mailgun", "smtp", "email service", "ses ", "postmark"},
		Category:        "email_service",
		MockStrategy:    "Use local mailhog/papercut or mock email sender",
		RequiresSecrets: true,
	},
	{
		Type:            "oauth",
		Keywords:        []string{"oauth", "google auth", "facebook login", "social login", "openid", "identity provider"},
		Category:        "authentication",
		MockStrategy:    "Use test OAuth credentials or mock identity provider",
		RequiresSecrets: true,
	},
	{
		Type:            "storage",
		Keywords:        []string{"s3 ", "azure blob", "cloudinary", "cloud storage", "cdn ", "file upload"},
		Category:        "cloud_storage",
		MockStrategy:    "Use local minio/azurite or mock storage service",
		RequiresSecrets: true,
	},
	{
		Type:            "sms",
		Keywords:        []string{"twilio", "nexmo", "sms gateway", "text message", "vonage"},
		Category:        "sms_service",
		MockStrategy:    "Use SMS service test mode or mock SMS sender",
		RequiresSecrets: true,
	},
	{
		Type:            "ai_ml",
		Keywords:        []string{"openai", "gpt-4", "anthropic", "claude", "huggingface", "machine learning", "ai service"},
		Category:        "ai_ml_service",
		MockStrategy:    "Use recorded responses or mock AI service",
		RequiresSecrets: true,
	},
	{
		Type:            "database_cloud",
		Keywords:        []string{"rds ", "cosmosdb", "atlas", "planetscale", "supabase", "firebase", "dynamodb"},
		Category:        "cloud_database",
		MockStrategy:    "Use local database container or in-memory database",
		RequiresSecrets: true,
	},
	{
		Type:            "messaging",
		Keywords:        []string{"rabbitmq", "kafka", "azure service bus", "sqs ", "pubsub", "eventgrid"},
		Category:        "message_queue",
		MockStrategy:    "Use local message broker container or in-memory queue",
		RequiresSecrets: false,
	},
}

// DetectDependencies scans text for external-service keywords.
func DetectDependencies(text string) []Dependency {
	lower := strings.ToLower(text)
	var found []Dependency
	for _, rule := range dependencyRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				found = append(found, Dependency{
					Type:            rule.Type,
					KeywordMatched:  kw,
					Category:        rule.Category,
					MockStrategy:    rule.MockStrategy,
					RequiresSecrets: rule.RequiresSecrets,
				})
				break
			}
		}
	}
	return found
}

// ScanDependencies detects external services in a story's title and acceptance
// criteria and stores them on the story when any are found.
func (m *Manager) ScanDependencies(ctx context.Context, storyID string) ([]Dependency, error) {
	rec, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	s, err := storyOf(rec, storyID)
	if err != nil {
		return nil, err
	}

	// Trailing space lets keywords such as "s3 " match at the end of the text.
	text := s.Title + " " + strings.Join(s.AcceptanceCriteria, " ") + " "
	found := DetectDependencies(text)
	if len(found) == 0 {
		return []Dependency{}, nil
	}

	_, err = m.update(ctx, func(rec *Record) error {
		s, err := storyOf(rec, storyID)
		if err != nil {
			return err
		}
		s.DetectedDependencies = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	types := make([]string, len(found))
	for i, d := range found {
		types[i] = d.Type
	}
	m.logProgress(storyID, "", fmt.Sprintf("Detected %d external dependencies: %s", len(found), strings.Join(types, ", ")))
	return found, nil
}
