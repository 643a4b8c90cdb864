package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"

	"github.com/hawosalon/salon/libs/events"
)

type view struct {
	Name  string
	Staff bool
	Event events.BookingEvent
}

var subjects = map[events.Type]string{
	events.BookingCreated:       "Booking received for {{.Event.Date}} at {{.Event.StartTime}}",
	events.BookingRescheduled:   "Booking moved to {{.Event.Date}} at {{.Event.StartTime}}",
	events.BookingCancelled:     "Booking on {{.Event.Date}} cancelled",
	events.BookingStatusChanged: "Booking on {{.Event.Date}} is now {{.Event.Status}}",
}

const textBody = `Hello {{.Name}},

{{if .Staff}}A booking on your schedule{{else}}Your booking{{end}}{{with .Event.ServiceName}} for {{.}}{{end}} {{template "what" .}}

When: {{.Event.Date}} {{.Event.StartTime}}-{{.Event.EndTime}}
Status: {{.Event.Status}}
{{- with .Event.Reason}}
Reason: {{.}}{{end}}
Reference: {{.Event.BookingID}}
`

const htmlBody = `<p>Hello {{.Name}},</p>
<p>{{if .Staff}}A booking on your schedule{{else}}Your booking{{end}}{{with .Event.ServiceName}} for <b>{{.}}</b>{{end}} {{template "what" .}}</p>
<p>When: {{.Event.Date}} {{.Event.StartTime}}-{{.Event.EndTime}}<br>Status: {{.Event.Status}}{{with .Event.Reason}}<br>Reason: {{.}}{{end}}</p>
<p style="color:#888">Reference: {{.Event.BookingID}}</p>
`

const what = `{{define "what"}}{{if eq .Event.Type "booking.created"}}has been received.{{else if eq .Event.Type "booking.rescheduled"}}has been moved from {{.Event.PreviousDate}} {{.Event.PreviousStart}}.{{else if eq .Event.Type "booking.cancelled"}}has been cancelled.{{else}}changed from {{.Event.PreviousStatus}} to {{.Event.Status}}.{{end}}{{end}}`

var (
	subjectTmpl = map[events.Type]*template.Template{}
	textTmpl    = template.Must(template.Must(template.New("text").Parse(textBody)).Parse(what))
	htmlTmpl    = htmltemplate.Must(htmltemplate.Must(htmltemplate.New("html").Parse(htmlBody)).Parse(what))
)

func init() {
	for typ, src := range subjects {
		subjectTmpl[typ] = template.Must(template.New(string(typ)).Parse(src))
	}
}

// Render builds the message for one recipient of ev.
func Render(ev events.BookingEvent, r events.Recipient) (Message, error) {
	st, ok := subjectTmpl[ev.Type]
	if !ok {
		return Message{}, fmt.Errorf("no template for %q", ev.Type)
	}
	v := view{Name: r.Name, Staff: r.Role == "staff", Event: ev}
	if v.Name == "" {
		v.Name = "there"
	}

	var subject, text, html bytes.Buffer
	if err := st.Execute(&subject, v); err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}
	if err := textTmpl.Execute(&text, v); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	if err := htmlTmpl.Execute(&html, v); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}
	return Message{To: r.Email, Subject: subject.String(), Text: text.String(), HTML: html.String()}, nil
}

// SMSText is the short form sent to phone recipients.
func SMSText(ev events.BookingEvent) string {
	switch ev.Type {
	case events.BookingCreated:
		return fmt.Sprintf("Booking received: %s %s.", ev.Date, ev.StartTime)
	case events.BookingRescheduled:
		return fmt.Sprintf("Booking moved to %s %s.", ev.Date, ev.StartTime)
	case events.BookingCancelled:
		return fmt.Sprintf("Booking on %s %s cancelled.", ev.Date, ev.StartTime)
	default:
		return fmt.Sprintf("Booking on %s %s is now %s.", ev.Date, ev.StartTime, ev.Status)
	}
}
