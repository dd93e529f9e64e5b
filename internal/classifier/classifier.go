// Package classifier scores inbound message text into priority, category,
// sentiment and tags using lexical keyword matching.
package classifier

import (
	"strings"
	"unicode"

	"github.com/spec-kit/sla-engine/internal/domain"
)

const (
	baseConfidence     = 50
	confidencePerMatch = 10
	maxConfidenceBonus = 40
	maxConfidence      = 95
	longKeywordLen     = 8
	capsRunLength      = 5
)

var (
	highPriorityKeywords = []string{
		"urgent", "asap", "emergency", "critical", "immediately", "down",
		"outage", "not working", "broken", "security", "breach", "legal",
		"lawsuit", "cancel", "escalate",
	}
	mediumPriorityKeywords = []string{
		"important", "soon", "issue", "problem", "error", "question",
		"follow up", "waiting", "update", "request",
	}
	lowPriorityKeywords = []string{
		"whenever", "no rush", "fyi", "newsletter", "thanks", "thank you",
		"feedback", "suggestion", "just wondering",
	}

	urgentKeywords   = []string{"urgent", "asap", "emergency", "immediately", "critical"}
	negativeKeywords = []string{
		"angry", "disappointed", "frustrated", "terrible", "awful", "worst",
		"unacceptable", "bad", "poor", "hate", "annoyed", "upset",
	}
	positiveKeywords = []string{
		"thanks", "thank you", "great", "excellent", "love", "appreciate",
		"happy", "awesome", "wonderful", "pleased",
	}
)

type categoryKeywords struct {
	category domain.Category
	keywords []string
}

// Declaration order is the tie-break order.
var categories = []categoryKeywords{
	{domain.CategorySales, []string{"price", "pricing", "quote", "purchase", "buy", "demo", "discount", "plan", "upgrade", "trial"}},
	{domain.CategorySupport, []string{"help", "issue", "problem", "error", "bug", "not working", "broken", "down", "crash", "login", "support"}},
	{domain.CategoryBilling, []string{"invoice", "billing", "payment", "charge", "refund", "receipt", "subscription", "credit card", "overcharged"}},
	{domain.CategoryComplaint, []string{"complaint", "unacceptable", "disappointed", "terrible", "worst", "angry", "frustrated", "poor service"}},
	{domain.CategoryInquiry, []string{"question", "information", "inquiry", "wondering", "curious", "how do", "what is", "details"}},
}

// Classify scores a message. It never fails: empty input classifies as
// low/other/neutral with base confidence.
func Classify(subject, body string) domain.Classification {
	raw := subject + " " + body
	text := strings.ToLower(raw)

	priority, priorityMatches := scorePriority(raw, text)
	category, categoryMatches := scoreCategory(text)

	matched := priorityMatches + categoryMatches
	bonus := matched * confidencePerMatch
	if bonus > maxConfidenceBonus {
		bonus = maxConfidenceBonus
	}
	confidence := baseConfidence + bonus
	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	return domain.Classification{
		Priority:   priority,
		Category:   category,
		Sentiment:  scoreSentiment(text),
		Tags:       buildTags(text, priority, category),
		Confidence: confidence,
	}
}

func scorePriority(raw, text string) (domain.TicketPriority, int) {
	var high, medium, low, matches int

	for _, kw := range highPriorityKeywords {
		if strings.Contains(text, kw) {
			matches++
			if len(kw) > longKeywordLen {
				high += 3
			} else {
				high += 2
			}
		}
	}
	for _, kw := range mediumPriorityKeywords {
		if strings.Contains(text, kw) {
			matches++
			medium++
		}
	}
	for _, kw := range lowPriorityKeywords {
		if strings.Contains(text, kw) {
			matches++
			low++
		}
	}

	if strings.Contains(raw, "!!!") {
		medium++
	}
	if hasCapsRun(raw, capsRunLength) {
		medium++
	}
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "re:") || strings.HasPrefix(trimmed, "fwd:") {
		medium++
	}

	switch {
	case high > 0:
		return domain.TicketPriorityHigh, matches
	case medium > low:
		return domain.TicketPriorityMedium, matches
	default:
		return domain.TicketPriorityLow, matches
	}
}

func scoreCategory(text string) (domain.Category, int) {
	best := domain.CategoryOther
	bestCount := 0
	for _, c := range categories {
		count := countHits(text, c.keywords)
		if count > bestCount {
			best = c.category
			bestCount = count
		}
	}
	return best, bestCount
}

func scoreSentiment(text string) domain.Sentiment {
	if countHits(text, urgentKeywords) > 0 {
		return domain.SentimentUrgent
	}
	negative := countHits(text, negativeKeywords)
	positive := countHits(text, positiveKeywords)
	switch {
	case negative > positive:
		return domain.SentimentNegative
	case positive > 0:
		return domain.SentimentPositive
	default:
		return domain.SentimentNeutral
	}
}

func buildTags(text string, priority domain.TicketPriority, category domain.Category) []string {
	tags := []string{string(priority) + "-priority"}
	if category != domain.CategoryOther {
		tags = append(tags, string(category))
	}
	if strings.Contains(text, "deadline") {
		tags = append(tags, "time-sensitive")
	}
	if strings.Contains(text, "vip") || strings.Contains(text, "premium") {
		tags = append(tags, "vip")
	}
	if strings.Contains(text, "new customer") || strings.Contains(text, "new client") {
		tags = append(tags, "new-customer")
	}
	return tags
}

func countHits(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

func hasCapsRun(s string, n int) bool {
	run := 0
	for _, r := range s {
		if unicode.IsUpper(r) {
			run++
			if run >= n {
				return true
			}
			continue
		}
		run = 0
	}
	return false
}
