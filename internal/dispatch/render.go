package dispatch

import (
	"fmt"
	"strings"
	"text/template"

	"lead-automation-service/internal/model"
)

// templateData is what message templates may reference.
type templateData struct {
	Name      string
	SubjectID string
	Score     int
}

// render executes the template's subject line and body against the
// subject's contact projection.
func render(tpl model.Template, subject model.Subject) (string, string, error) {
	data := templateData{
		Name:      subject.Name,
		SubjectID: subject.ID,
		Score:     subject.Score,
	}

	subjectLine, err := renderOne("subject", tpl.Subject, data)
	if err != nil {
		return "", "", err
	}
	body, err := renderOne("body", tpl.Body, data)
	if err != nil {
		return "", "", err
	}
	return subjectLine, body, nil
}

func renderOne(name, text string, data templateData) (string, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", name, err)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", name, err)
	}
	return sb.String(), nil
}

func personalizationPrompt(subject model.Subject, body string) string {
	name := subject.Name
	if name == "" {
		name = "the recipient"
	}
	return fmt.Sprintf(
		"Rewrite the following message for %s. Keep the meaning, calls to action and any links unchanged. Return only the rewritten message.\n\n%s",
		name, body,
	)
}
