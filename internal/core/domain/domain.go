package domain

import "time"

// Category constants.
const (
	CategoryOther         = "other"
	CategoryAutoCollected = "auto_collected"
)

// DefaultUsername is used when a request does not identify a profile.
const DefaultUsername = "default_user"

// Event is a persisted catalog record.
type Event struct {
	ID          string
	Title       string
	Date        string
	Description string
	Link        string
	Category    string
	Verified    bool
	UpdatedAt   time.Time
	Embedding   []float32
}

// Candidate is an extracted event that has not been persisted yet.
type Candidate struct {
	Title       string
	Date        string
	Description string
	Link        string
	Category    string
	Verified    bool
	Embedding   []float32
}

// EmbeddingText returns the text used to encode a candidate.
func (c Candidate) EmbeddingText() string {
	return EmbeddingText(c.Title, c.Description)
}

// EmbeddingText returns the text used to encode an event.
func (e Event) EmbeddingText() string {
	return EmbeddingText(e.Title, e.Description)
}

// EmbeddingText joins a title and a description the same way for every caller,
// so cached and freshly computed vectors are comparable.
func EmbeddingText(title, description string) string {
	if description == "" {
		return title
	}

	return title + " " + description
}

// Recommendation is an event returned to a requester. It never carries an embedding.
type Recommendation struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	Category    string    `json:"category"`
	Verified    bool      `json:"verified"`
	UpdatedAt   time.Time `json:"updated_at"`
	Score       float32   `json:"score"`
	Reason      string    `json:"reason"`
}

// NewRecommendation projects an event into a recommendation without its embedding.
func NewRecommendation(e Event, score float32, reason string) Recommendation {
	return Recommendation{
		ID:          e.ID,
		Title:       e.Title,
		Date:        e.Date,
		Description: e.Description,
		Link:        e.Link,
		Category:    e.Category,
		Verified:    e.Verified,
		UpdatedAt:   e.UpdatedAt,
		Score:       score,
		Reason:      reason,
	}
}

// Profile is a user's interest profile.
type Profile struct {
	Username  string
	Interests []string
	UpdatedAt time.Time
}

// InterestsText returns the flattened interest string used for scoring.
func (p Profile) InterestsText() string {
	return JoinInterests(p.Interests)
}
