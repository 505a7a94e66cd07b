// Package template renders reminder email content keyed by reminder kind.
package template

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/atelierhq/workshopd/internal/domain"
)

// Data carries the fields reminder templates can reference.
type Data struct {
	RecipientName string
	EventName     string
	EventDate     time.Time
	Location      string
	MeetingLink   string
}

// FormattedDate is what templates print for the event start.
func (d Data) FormattedDate() string {
	return d.EventDate.Format("Monday, January 2 2006 at 15:04 MST")
}

// Provider resolves a template for a reminder kind and renders it.
type Provider interface {
	Render(kind domain.ReminderKind, data Data) (subject, html, text string, err error)
}

type message struct {
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

// BuiltinProvider serves the stock reminder templates compiled at startup.
type BuiltinProvider struct {
	messages map[domain.ReminderKind]message
}

func NewBuiltinProvider() (*BuiltinProvider, error) {
	sources := map[domain.ReminderKind]struct {
		subject, html, text string
	}{
		domain.ReminderKindEarly: {
			subject: "Your workshop {{.EventName}} is coming up",
			html:    `<p>Hi {{.RecipientName}},</p><p>Your workshop <strong>{{.EventName}}</strong> starts {{.FormattedDate}}.{{if .Location}} We meet at {{.Location}}.{{end}}</p><p>See you there!</p>`,
			text:    "Hi {{.RecipientName}},\n\nYour workshop {{.EventName}} starts {{.FormattedDate}}.{{if .Location}} We meet at {{.Location}}.{{end}}\n\nSee you there!",
		},
		domain.ReminderKindDayOf: {
			subject: "Tomorrow: {{.EventName}}",
			html:    `<p>Hi {{.RecipientName}},</p><p><strong>{{.EventName}}</strong> starts {{.FormattedDate}}.{{if .Location}} Address: {{.Location}}.{{end}}{{if .MeetingLink}} Join link: <a href="{{.MeetingLink}}">{{.MeetingLink}}</a>.{{end}}</p>`,
			text:    "Hi {{.RecipientName}},\n\n{{.EventName}} starts {{.FormattedDate}}.{{if .Location}} Address: {{.Location}}.{{end}}{{if .MeetingLink}} Join link: {{.MeetingLink}}.{{end}}",
		},
		domain.ReminderKindFinal: {
			subject: "Starting soon: {{.EventName}}",
			html:    `<p>Hi {{.RecipientName}},</p><p><strong>{{.EventName}}</strong> starts in a couple of hours ({{.FormattedDate}}).{{if .MeetingLink}} Join here: <a href="{{.MeetingLink}}">{{.MeetingLink}}</a>.{{end}}</p>`,
			text:    "Hi {{.RecipientName}},\n\n{{.EventName}} starts in a couple of hours ({{.FormattedDate}}).{{if .MeetingLink}} Join here: {{.MeetingLink}}.{{end}}",
		},
		domain.ReminderKindFollowUp: {
			subject: "Thanks for joining {{.EventName}}",
			html:    `<p>Hi {{.RecipientName}},</p><p>Thanks for joining <strong>{{.EventName}}</strong> today. We'd love to hear how it went - just reply to this email.</p>`,
			text:    "Hi {{.RecipientName}},\n\nThanks for joining {{.EventName}} today. We'd love to hear how it went - just reply to this email.",
		},
	}

	p := &BuiltinProvider{messages: make(map[domain.ReminderKind]message, len(sources))}
	for kind, src := range sources {
		subject, err := texttemplate.New(string(kind) + ":subject").Parse(src.subject)
		if err != nil {
			return nil, fmt.Errorf("parse %s subject template: %w", kind, err)
		}
		html, err := htmltemplate.New(string(kind) + ":html").Parse(src.html)
		if err != nil {
			return nil, fmt.Errorf("parse %s html template: %w", kind, err)
		}
		text, err := texttemplate.New(string(kind) + ":text").Parse(src.text)
		if err != nil {
			return nil, fmt.Errorf("parse %s text template: %w", kind, err)
		}
		p.messages[kind] = message{subject: subject, html: html, text: text}
	}
	return p, nil
}

func (p *BuiltinProvider) Render(kind domain.ReminderKind, data Data) (string, string, string, error) {
	m, ok := p.messages[kind]
	if !ok {
		return "", "", "", fmt.Errorf("no template for reminder kind %q", kind)
	}

	var subject, html, text bytes.Buffer
	if err := m.subject.Execute(&subject, data); err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := m.html.Execute(&html, data); err != nil {
		return "", "", "", fmt.Errorf("render html body: %w", err)
	}
	if err := m.text.Execute(&text, data); err != nil {
		return "", "", "", fmt.Errorf("render text body: %w", err)
	}
	return subject.String(), html.String(), text.String(), nil
}
