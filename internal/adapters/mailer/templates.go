package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/unevent/unevent-api/internal/domain/model"
	"github.com/unevent/unevent-api/internal/ports"
)

// ErrUnknownEvent is returned when no template is registered for an event.
var ErrUnknownEvent = errors.New("no email template for event")

type emailTemplate struct {
	subject *template.Template
	text    *template.Template
}

// Registry renders notification payloads into messages.
type Registry struct {
	templates map[model.EventType]emailTemplate
}

type templateSource struct {
	event   model.EventType
	subject string
	text    string
}

var builtinTemplates = []templateSource{
	{
		event:   model.EventListingApproved,
		subject: `Listarea „{{.title}}” a fost aprobată`,
		text: `Bună, {{or .ownerName "acolo"}}!

Listarea ta „{{.title}}” a fost aprobată și este acum vizibilă pe UN:EVENT.
{{- with .listingUrl}}

Vezi listarea: {{.}}
{{- end}}

Echipa UN:EVENT
`,
	},
	{
		event:   model.EventListingRejected,
		subject: `Listarea „{{.title}}” necesită modificări`,
		text: `Bună, {{or .ownerName "acolo"}}!

Listarea ta „{{.title}}” nu a fost aprobată.
{{- with .reason}}

Motiv: {{.}}
{{- end}}

Poți actualiza listarea și o vom revizui din nou.

Echipa UN:EVENT
`,
	},
	{
		event:   model.EventAdminListingPending,
		subject: `[UN:EVENT] Listare nouă în așteptare: {{.title}}`,
		text: `{{or .creatorName "Unknown"}} a trimis „{{.title}}” ({{.collection}}) spre aprobare.

Revizuiește: {{.dashboardUrl}}
`,
	},
	{
		event:   model.EventListingClaimInvitation,
		subject: `Revendică listarea „{{.title}}” pe UN:EVENT`,
		text: `Bună!

Am creat pe UN:EVENT o listare pentru „{{.title}}”. Dacă îți aparține, o poți revendica aici:

{{.claimUrl}}
{{- with .supportEmail}}

Întrebări? Scrie-ne la {{.}}.
{{- end}}

Echipa UN:EVENT
`,
	},
}

// NewRegistry parses the built-in templates.
func NewRegistry() (*Registry, error) {
	r := &Registry{templates: make(map[model.EventType]emailTemplate, len(builtinTemplates))}
	for _, src := range builtinTemplates {
		subject, err := template.New(string(src.event) + ".subject").Option("missingkey=zero").Parse(src.subject)
		if err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", src.event, err)
		}
		text, err := template.New(string(src.event) + ".text").Option("missingkey=zero").Parse(src.text)
		if err != nil {
			return nil, fmt.Errorf("parse %s body: %w", src.event, err)
		}
		r.templates[src.event] = emailTemplate{subject: subject, text: text}
	}
	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on a template error.
func MustNewRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		//nolint:forbidigo // built-in templates are compiled into the binary.
		panic(err)
	}
	return r
}

// Events lists the events with a template.
func (r *Registry) Events() []model.EventType {
	out := make([]model.EventType, 0, len(r.templates))
	for _, src := range builtinTemplates {
		if _, ok := r.templates[src.event]; ok {
			out = append(out, src.event)
		}
	}
	return out
}

// Render builds the message for p.
func (r *Registry) Render(p *model.NotificationPayload) (ports.Message, error) {
	if p == nil {
		return ports.Message{}, errors.New("notification payload is required")
	}
	t, ok := r.templates[p.Event]
	if !ok {
		return ports.Message{}, fmt.Errorf("%w: %s", ErrUnknownEvent, p.Event)
	}

	data := p.Data
	if data == nil {
		data = map[string]string{}
	}
	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return ports.Message{}, fmt.Errorf("render %s subject: %w", p.Event, err)
	}
	if err := t.text.Execute(&body, data); err != nil {
		return ports.Message{}, fmt.Errorf("render %s body: %w", p.Event, err)
	}

	msg := ports.Message{
		To:      append([]string(nil), p.To...),
		Subject: strings.TrimSpace(subject.String()),
		Text:    body.String(),
		Tag:     strings.ReplaceAll(string(p.Event), ".", "-"),
	}
	if p.Event == model.EventListingClaimInvitation {
		msg.ReplyTo = data["supportEmail"]
	}
	return msg, nil
}
