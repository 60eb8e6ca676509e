package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/gigtalk/gigtalk/internal/timeline"
)

// Responder produces the assistant's reply text for a message.
type Responder interface {
	Respond(ctx context.Context, msg timeline.Message) (string, error)
}

// Composer routes between the text responder and the image analyzer. A
// message replying to an image attachment goes through image analysis.
type Composer struct {
	text  Responder
	image Responder

	// lookup resolves a reply-to id to its message within the open
	// conversation. Nil lookups disable image routing.
	lookup func(id string) (timeline.Message, bool)
}

// NewComposer builds a Composer.
func NewComposer(text, image Responder, lookup func(id string) (timeline.Message, bool)) *Composer {
	return &Composer{text: text, image: image, lookup: lookup}
}

// Respond picks the responder for msg and produces the reply.
func (c *Composer) Respond(ctx context.Context, msg timeline.Message) (string, error) {
	if c.image != nil && c.lookup != nil && msg.ReplyToID != "" {
		if parent, ok := c.lookup(msg.ReplyToID); ok {
			if parent.Attachment != nil && parent.Attachment.Kind == timeline.AttachmentImage {
				return c.image.Respond(ctx, msg)
			}
		}
	}
	return c.text.Respond(ctx, msg)
}

// CannedResponder is the built-in text responder. It answers from a small
// topic table and falls back to a generic nudge.
type CannedResponder struct {
	Name string
}

var cannedTopics = []struct {
	phrase string
	reply  string
}{
	{"price", "Pricing depends on scope. Share the deliverables and I can suggest a range."},
	{"rate", "Most freelancers here set an hourly rate on their profile. Try \"set hourly rate to <amount>\"."},
	{"deadline", "Tight deadline? Filter gigs by delivery time, or message the freelancer before ordering."},
	{"recommend", "Tell me what you need done and I'll search gigs for it."},
	{"suggest", "Tell me what you need done and I'll search gigs for it."},
	{"help", "I can manage orders, update profiles, and search gigs or jobs. Try \"show my orders\"."},
}

func (r *CannedResponder) Respond(_ context.Context, msg timeline.Message) (string, error) {
	body := strings.ToLower(msg.Body)
	for _, topic := range cannedTopics {
		if strings.Contains(body, topic.phrase) {
			return topic.reply, nil
		}
	}
	return fmt.Sprintf("Hi %s! I'm %s. Ask me about orders, profiles, gigs or jobs.", msg.SenderName, r.Name), nil
}

// ImageAnalyzer replies to messages that reference an image attachment.
type ImageAnalyzer struct{}

func (ImageAnalyzer) Respond(_ context.Context, msg timeline.Message) (string, error) {
	return "I took a look at that image. Could you tell me what you'd like me to check in it?", nil
}
