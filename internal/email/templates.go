package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type leadOfferedEmailData struct {
	baseEmailData
	BrokerName    string
	PropertyTitle string
	ClientName    string
	Deadline      string
}

type leadClaimedEmailData struct {
	baseEmailData
	BrokerName    string
	PropertyTitle string
	ClientName    string
	ClientPhone   string
}

type routingExhaustedEmailData struct {
	baseEmailData
	PropertyTitle string
	ClientName    string
}

func renderEmailTemplate(name string, data any) (string, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
