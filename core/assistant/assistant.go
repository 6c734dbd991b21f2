// Package assistant describes the conversational caddie the session talks
// to: what it is shown each turn and what it answers with.
package assistant

import (
	"errors"
	"strings"

	"github.com/koscakluka/ema-caddie/core/cues"
	"github.com/koscakluka/ema-caddie/core/golf"
)

var ErrEmptyReply = errors.New("assistant reply has no conversational response")

// Request is everything the assistant sees for one turn. Round already
// contains the user's latest message.
type Request struct {
	Course  golf.Course
	Hole    golf.Hole
	Round   golf.Round
	Profile golf.PlayerProfile
}

type Reply struct {
	Text       string
	Cue        cues.Cue
	Extraction golf.Extraction
}

// ReplyPayload is the JSON document the assistant is asked to produce.
type ReplyPayload struct {
	ConversationalResponse string        `json:"conversationalResponse" jsonschema:"description=What the caddie says back to the golfer. One to three short spoken sentences."`
	AudioCue               string        `json:"audioCue,omitempty" jsonschema:"enum=discovery,enum=update,enum=memory,enum=achievement,enum=log,description=Ambient sound for this turn. Omit when nothing notable happened."`
	ExtractedData          ExtractedData `json:"extractedData"`
}

// ExtractedData holds the facts pulled out of the golfer's last message.
// Every field is optional.
type ExtractedData struct {
	HoleNumber     *int    `json:"holeNumber,omitempty" jsonschema:"description=Hole the golfer is talking about if they mention one."`
	Club           *string `json:"club,omitempty" jsonschema:"description=Club used for a shot the golfer just described."`
	Outcome        *string `json:"outcome,omitempty" jsonschema:"enum=Fairway,enum=Green,enum=Rough,enum=Bunker,enum=Water,enum=OB,enum=In Hole,enum=Penalty"`
	ScoreOnHole    *int    `json:"scoreOnHole,omitempty" jsonschema:"description=Total strokes on the hole once the golfer reports finishing it."`
	CourseNote     *string `json:"courseNote,omitempty" jsonschema:"description=Lasting insight about the current hole worth remembering for future rounds."`
	PlayerTendency *string `json:"playerTendency,omitempty" jsonschema:"description=Lasting pattern in the golfer's game worth remembering."`
}

// Reply converts the wire payload. Values are passed through untouched;
// range checks happen in [golf.Extraction.Sanitize].
func (p ReplyPayload) Reply() (Reply, error) {
	text := strings.TrimSpace(p.ConversationalResponse)
	if text == "" {
		return Reply{}, ErrEmptyReply
	}

	reply := Reply{
		Text: text,
		Cue:  cues.ParseCue(p.AudioCue),
		Extraction: golf.Extraction{
			HoleNumber:     p.ExtractedData.HoleNumber,
			Club:           p.ExtractedData.Club,
			ScoreOnHole:    p.ExtractedData.ScoreOnHole,
			CourseNote:     p.ExtractedData.CourseNote,
			PlayerTendency: p.ExtractedData.PlayerTendency,
		},
	}
	if p.ExtractedData.Outcome != nil {
		outcome := golf.ShotOutcome(strings.TrimSpace(*p.ExtractedData.Outcome))
		if !outcome.IsValid() {
			outcome = golf.ParseShotOutcome(string(outcome))
		}
		reply.Extraction.Outcome = &outcome
	}
	return reply, nil
}
