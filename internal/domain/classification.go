package domain

// Category is the lexical topic bucket of a ticket.
type Category string

const (
	CategorySales     Category = "sales"
	CategorySupport   Category = "support"
	CategoryBilling   Category = "billing"
	CategoryComplaint Category = "complaint"
	CategoryInquiry   Category = "inquiry"
	CategoryOther     Category = "other"
)

// Sentiment captures tone detected in the message.
type Sentiment string

const (
	SentimentUrgent   Sentiment = "urgent"
	SentimentNegative Sentiment = "negative"
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
)

// Classification is the transient result of scoring a message.
type Classification struct {
	Priority   TicketPriority `json:"priority"`
	Category   Category       `json:"category"`
	Sentiment  Sentiment      `json:"sentiment"`
	Tags       []string       `json:"tags"`
	Confidence int            `json:"confidence"`
}

// ParseCategory reports whether raw names a known category.
func ParseCategory(raw string) (Category, bool) {
	switch c := Category(raw); c {
	case CategorySales, CategorySupport, CategoryBilling, CategoryComplaint, CategoryInquiry, CategoryOther:
		return c, true
	}
	return "", false
}
