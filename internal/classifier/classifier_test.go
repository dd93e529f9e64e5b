package classifier

import (
	"slices"
	"testing"

	"github.com/spec-kit/sla-engine/internal/domain"
)

func TestClassify_UrgentPaymentOutage(t *testing.T) {
	t.Parallel()

	got := Classify("Urgent: Payment gateway down", "please help asap")

	if got.Priority != domain.TicketPriorityHigh {
		t.Errorf("priority = %q, want high", got.Priority)
	}
	if got.Sentiment != domain.SentimentUrgent {
		t.Errorf("sentiment = %q, want urgent", got.Sentiment)
	}
	if got.Category != domain.CategorySupport && got.Category != domain.CategoryBilling {
		t.Errorf("category = %q, want support or billing", got.Category)
	}
	if got.Confidence < 60 {
		t.Errorf("confidence = %d, want >= 60", got.Confidence)
	}
}

func TestClassify_EmptyInput(t *testing.T) {
	t.Parallel()

	got := Classify("", "")
	if got.Priority != domain.TicketPriorityLow {
		t.Errorf("priority = %q, want low", got.Priority)
	}
	if got.Category != domain.CategoryOther {
		t.Errorf("category = %q, want other", got.Category)
	}
	if got.Sentiment != domain.SentimentNeutral {
		t.Errorf("sentiment = %q, want neutral", got.Sentiment)
	}
	if got.Confidence != baseConfidence {
		t.Errorf("confidence = %d, want %d", got.Confidence, baseConfidence)
	}
	if !slices.Equal(got.Tags, []string{"low-priority"}) {
		t.Errorf("tags = %v", got.Tags)
	}
}

func TestClassify_Priority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		subject string
		body    string
		want    domain.TicketPriority
	}{
		{"high keyword", "server outage", "", domain.TicketPriorityHigh},
		{"medium keyword", "small issue", "", domain.TicketPriorityMedium},
		{"low keyword", "fyi", "no rush on this", domain.TicketPriorityLow},
		{"exclamation heuristic", "hello!!!", "", domain.TicketPriorityMedium},
		{"caps run heuristic", "PLEASE read", "", domain.TicketPriorityMedium},
		{"reply prefix heuristic", "Re: hello", "", domain.TicketPriorityMedium},
		{"forward prefix heuristic", "Fwd: hello", "", domain.TicketPriorityMedium},
		{"short caps run ignored", "HELP me", "", domain.TicketPriorityLow},
		{"medium ties low", "issue", "thanks", domain.TicketPriorityLow},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tt.subject, tt.body)
			if got.Priority != tt.want {
				t.Errorf("priority = %q, want %q", got.Priority, tt.want)
			}
		})
	}
}

func TestClassify_CategoryTieKeepsFirstDeclared(t *testing.T) {
	t.Parallel()

	// one sales hit ("pricing") and one billing hit ("invoice")
	got := Classify("pricing and invoice", "")
	if got.Category != domain.CategorySales {
		t.Errorf("category = %q, want sales", got.Category)
	}
}

func TestClassify_CategoryStrictMaximum(t *testing.T) {
	t.Parallel()

	got := Classify("refund", "my invoice shows a double charge")
	if got.Category != domain.CategoryBilling {
		t.Errorf("category = %q, want billing", got.Category)
	}
}

func TestClassify_Sentiment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want domain.Sentiment
	}{
		{"urgent beats negative", "urgent, this is terrible", domain.SentimentUrgent},
		{"negative", "awful and disappointing, worst experience", domain.SentimentNegative},
		{"positive", "great job, appreciate it", domain.SentimentPositive},
		{"balanced falls to positive", "great but bad", domain.SentimentPositive},
		{"neutral", "see attached", domain.SentimentNeutral},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify("", tt.text)
			if got.Sentiment != tt.want {
				t.Errorf("sentiment = %q, want %q", got.Sentiment, tt.want)
			}
		})
	}
}

func TestClassify_Tags(t *testing.T) {
	t.Parallel()

	got := Classify("VIP new customer", "the deadline is friday, premium plan question")
	for _, want := range []string{"time-sensitive", "vip", "new-customer"} {
		if !slices.Contains(got.Tags, want) {
			t.Errorf("tags %v missing %q", got.Tags, want)
		}
	}
	if got.Tags[0] != string(got.Priority)+"-priority" {
		t.Errorf("first tag = %q, want priority tag", got.Tags[0])
	}

	again := Classify("VIP new customer", "the deadline is friday, premium plan question")
	if !slices.Equal(got.Tags, again.Tags) {
		t.Errorf("tags not deterministic: %v vs %v", got.Tags, again.Tags)
	}
}

func TestClassify_ConfidenceCapped(t *testing.T) {
	t.Parallel()

	got := Classify("urgent emergency outage", "critical security breach, help, error, bug, crash, login broken")
	if got.Confidence != baseConfidence+maxConfidenceBonus {
		t.Errorf("confidence = %d, want %d", got.Confidence, baseConfidence+maxConfidenceBonus)
	}
	if got.Confidence > maxConfidence {
		t.Errorf("confidence %d exceeds cap", got.Confidence)
	}
}
