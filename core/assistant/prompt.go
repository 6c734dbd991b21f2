package assistant

import (
	"strings"
	"text/template"

	"github.com/koscakluka/ema-caddie/core/golf"
)

const DefaultPersona = `You are a friendly, upbeat golf caddie walking the course with the golfer.
Keep answers short and natural, the way you would talk between shots.
Log what the golfer tells you about their shots and scores, offer advice
grounded in the hole notes and their tendencies, and remember anything
that would help on future rounds.`

var promptTemplate = template.Must(template.New("prompt").Parse(`{{.Persona}}

Course: {{.Course.Name}}
Conditions: {{.Round.Conditions}}

Current hole: {{.Hole.HoleNumber}} (par {{.Hole.Par}}, {{.Hole.Yardage}} yards)
{{- with .Hole.Description}}
Description: {{.}}{{end}}
{{- if .Hole.Notes}}
Notes from earlier rounds:
{{- range .Hole.Notes}}
- {{.}}{{end}}{{end}}
{{- if .Round.HoleByHole}}

Round so far:
{{- range .Round.HoleByHole}}
- Hole {{.HoleNumber}}: {{if .Score}}score {{.Score}}{{else}}in progress{{end}}{{range .Shots}}; {{.Club}} ({{.Outcome}}){{end}}{{end}}{{end}}
{{- if .Profile.Tendencies}}

Player tendencies:
{{- range .Profile.Tendencies}}
- {{.}}{{end}}{{end}}

Reply with JSON containing conversationalResponse, an optional audioCue and
extractedData. Only fill extractedData fields the golfer's last message
actually states. Use audioCue "log" when you log a shot, "update" when you
record a score, "memory" when you save a note or tendency, "discovery" for
a useful insight and "achievement" for a great result.`))

type promptData struct {
	Persona string
	Request
}

// SystemPrompt renders the instructions for one turn. An empty persona
// falls back to [DefaultPersona].
func SystemPrompt(persona string, req Request) (string, error) {
	if strings.TrimSpace(persona) == "" {
		persona = DefaultPersona
	}

	var b strings.Builder
	if err := promptTemplate.Execute(&b, promptData{Persona: strings.TrimSpace(persona), Request: req}); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Transcript returns the conversation in turn order without blank messages.
func Transcript(round golf.Round) []golf.ChatMessage {
	messages := make([]golf.ChatMessage, 0, len(round.Conversation))
	for _, msg := range round.Conversation {
		if strings.TrimSpace(msg.Text) == "" {
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}
