// Package assistant decides when the platform assistant chimes into a group
// conversation and schedules its delayed replies.
package assistant

import (
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gigtalk/gigtalk/internal/config"
	"github.com/gigtalk/gigtalk/internal/logging"
	"github.com/gigtalk/gigtalk/internal/timeline"
)

// Reason explains why the assistant decided to respond.
type Reason string

const (
	// ReasonNone means the assistant stays quiet.
	ReasonNone Reason = ""

	// ReasonMentioned fires when the message names the assistant.
	ReasonMentioned Reason = "mentioned"

	// ReasonKeyword fires probabilistically on keyword hits.
	ReasonKeyword Reason = "keyword"

	// ReasonAmbient is the low-probability unprompted chime-in.
	ReasonAmbient Reason = "ambient"
)

// Trigger evaluates incoming group messages against the participation rules.
// The rand source is injectable so tests can force deterministic outcomes.
type Trigger struct {
	name     string
	keywords []string

	keywordProb float64
	ambientProb float64

	minDelay time.Duration
	maxDelay time.Duration

	randFloat func() float64
	randInt63 func(n int64) int64

	logger zerolog.Logger
}

// NewTrigger builds a Trigger from the assistant configuration.
func NewTrigger(cfg config.AssistantConfig) *Trigger {
	keywords := make([]string, 0, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return &Trigger{
		name:        strings.ToLower(cfg.Name),
		keywords:    keywords,
		keywordProb: cfg.KeywordProbability,
		ambientProb: cfg.AmbientProbability,
		minDelay:    cfg.MinDelay,
		maxDelay:    cfg.MaxDelay,
		randFloat:   rand.Float64,
		randInt63:   rand.Int63n,
		logger:      logging.Component("assistant"),
	}
}

// WithRand overrides the random sources. Tests use this to force or suppress
// probabilistic triggers.
func (t *Trigger) WithRand(randFloat func() float64, randInt63 func(int64) int64) *Trigger {
	if randFloat != nil {
		t.randFloat = randFloat
	}
	if randInt63 != nil {
		t.randInt63 = randInt63
	}
	return t
}

// Evaluate decides whether the assistant should respond to msg within conv.
// Assistant-authored messages never trigger, regardless of content.
func (t *Trigger) Evaluate(msg timeline.Message, conv timeline.Conversation) Reason {
	if msg.IsAssistant() || msg.Kind != timeline.KindUser {
		return ReasonNone
	}
	if conv.Type != timeline.ConversationGroup {
		return ReasonNone
	}

	body := strings.ToLower(msg.Body)
	if t.name != "" && (strings.Contains(body, "@"+t.name) || strings.Contains(body, t.name)) {
		t.logger.Debug().Str("conversation_id", conv.ID).Str("reason", string(ReasonMentioned)).Msg("trigger fired")
		return ReasonMentioned
	}
	for _, kw := range t.keywords {
		if strings.Contains(body, kw) {
			if t.randFloat() < t.keywordProb {
				t.logger.Debug().Str("conversation_id", conv.ID).Str("reason", string(ReasonKeyword)).Msg("trigger fired")
				return ReasonKeyword
			}
			return ReasonNone
		}
	}
	if t.randFloat() < t.ambientProb {
		t.logger.Debug().Str("conversation_id", conv.ID).Str("reason", string(ReasonAmbient)).Msg("trigger fired")
		return ReasonAmbient
	}
	return ReasonNone
}

// Delay returns a randomized response delay within the configured bounds.
func (t *Trigger) Delay() time.Duration {
	if t.maxDelay <= t.minDelay {
		return t.minDelay
	}
	span := int64(t.maxDelay - t.minDelay)
	return t.minDelay + time.Duration(t.randInt63(span))
}
