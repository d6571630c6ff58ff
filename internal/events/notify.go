package events

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/gurkanbulca/tasktimer/internal/models"
	"github.com/gurkanbulca/tasktimer/internal/report"
	"github.com/gurkanbulca/tasktimer/pkg/email"
)

type emailTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustTemplate(subject, body string) emailTemplate {
	funcs := template.FuncMap{"duration": report.FormatDuration}
	return emailTemplate{
		subject: template.Must(template.New("subject").Funcs(funcs).Parse(subject)),
		body:    template.Must(template.New("body").Funcs(funcs).Parse(body)),
	}
}

var attentionTemplates = map[models.EventType]emailTemplate{
	models.EventPaused: mustTemplate(
		`Task blocked: {{.Title}}`,
		`Task "{{.Title}}" ({{.TaskID}}) was paused on a blocker at {{.OccurredAt.Format "2006-01-02 15:04 MST"}}.

Owner:        {{.UserID}}
Account:      {{.AccountID}}
Worked so far: {{duration .TotalWorkingTime}}
Pauses:       {{.PauseCount}}
{{if .DueAt}}Due:          {{.DueAt.Format "2006-01-02 15:04 MST"}}
{{end}}`),
	models.EventOverdue: mustTemplate(
		`Task overdue: {{.Title}}`,
		`Task "{{.Title}}" ({{.TaskID}}) passed its due date {{.DueAt.Format "2006-01-02 15:04 MST"}} while {{.Status}}.

Owner:        {{.UserID}}
Account:      {{.AccountID}}
Worked so far: {{duration .TotalWorkingTime}}
`),
}

// AttentionNotifier emails events flagged NeedsAttention to a fixed list of
// recipients. Other events are ignored.
type AttentionNotifier struct {
	sender     email.Sender
	recipients []string
}

func NewAttentionNotifier(sender email.Sender, recipients []string) *AttentionNotifier {
	return &AttentionNotifier{sender: sender, recipients: recipients}
}

func (n *AttentionNotifier) Dispatch(ctx context.Context, ev models.LifecycleEvent) error {
	if !ev.NeedsAttention {
		return nil
	}
	tmpl, ok := attentionTemplates[ev.Type]
	if !ok {
		return nil
	}

	msg, err := render(tmpl, ev)
	if err != nil {
		return fmt.Errorf("render %s notification: %w", ev.Type, err)
	}
	if err := n.sender.Send(ctx, n.recipients, msg); err != nil {
		return fmt.Errorf("notify %s for task %s: %w", ev.Type, ev.TaskID, err)
	}
	return nil
}

func render(tmpl emailTemplate, ev models.LifecycleEvent) (email.Message, error) {
	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, ev); err != nil {
		return email.Message{}, err
	}
	if err := tmpl.body.Execute(&body, ev); err != nil {
		return email.Message{}, err
	}
	return email.Message{Subject: subject.String(), TextBody: body.String()}, nil
}
