package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/haven/pkg/llm"
	"github.com/papercomputeco/haven/pkg/mood"
)

const (
	// WelcomeMessage opens every session.
	WelcomeMessage = "Welcome to your safe space. How are you feeling today?"

	// WelcomeSentiment is the sentiment attached to the welcome message.
	WelcomeSentiment = 0.7

	// CrisisHelplineURL lists crisis hotlines by country.
	CrisisHelplineURL = "https://findahelpline.com/"
)

// Message is one entry of a session transcript.
type Message struct {
	ID             string    `json:"id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	SentimentScore *float64  `json:"sentiment_score,omitempty"`
	IsCrisis       bool      `json:"is_crisis,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Session is the explicit conversation state: transcript and mood series for
// one user. It is owned by the session store and handed to the orchestrator
// per turn.
type Session struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Messages  []Message   `json:"messages"`
	Mood      mood.Series `json:"mood"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewSession returns a session seeded with the welcome message and the
// baseline mood point.
func NewSession(userID string, now time.Time) *Session {
	sentiment := WelcomeSentiment
	return &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		Messages: []Message{{
			ID:             uuid.NewString(),
			Role:           llm.RoleAssistant,
			Content:        WelcomeMessage,
			SentimentScore: &sentiment,
			CreatedAt:      now,
		}},
		Mood:      mood.Series{mood.BaselinePoint(now)},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// History converts the transcript into gateway messages, keeping at most the
// last limit entries when limit is positive.
func (s *Session) History(limit int) []llm.Message {
	msgs := s.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, llm.NewTextMessage(m.Role, m.Content))
	}
	return out
}

// crisisPhrases flag a user message for the crisis helpline.
var crisisPhrases = []string{
	"kill myself",
	"killing myself",
	"end my life",
	"ending my life",
	"suicide",
	"suicidal",
	"want to die",
	"self harm",
	"self-harm",
	"hurt myself",
	"no reason to live",
}

// IsCrisis reports whether text contains a crisis phrase.
func IsCrisis(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range crisisPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
