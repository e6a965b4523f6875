package subscription

import (
	"fmt"

	"github.com/osteele/liquid"
)

const (
	confirmationSubject = "Welcome!"

	confirmationHTML = `Welcome to our newsletter, {{ name | escape }}!<br />` +
		`Click <a href="{{ link }}">here</a> to confirm your subscription.`

	confirmationText = "Welcome to our newsletter, {{ name }}!\n" +
		"Visit {{ link }} to confirm your subscription."
)

type confirmationTemplates struct {
	html *liquid.Template
	text *liquid.Template
}

func parseConfirmationTemplates() (*confirmationTemplates, error) {
	engine := liquid.NewEngine()
	html, err := engine.ParseString(confirmationHTML)
	if err != nil {
		return nil, fmt.Errorf("parse confirmation html template: %w", err)
	}
	text, err := engine.ParseString(confirmationText)
	if err != nil {
		return nil, fmt.Errorf("parse confirmation text template: %w", err)
	}
	return &confirmationTemplates{html: html, text: text}, nil
}

func (t *confirmationTemplates) render(name, link string) (string, string, error) {
	bindings := map[string]interface{}{"name": name, "link": link}
	html, err := t.html.RenderString(bindings)
	if err != nil {
		return "", "", fmt.Errorf("render confirmation html: %w", err)
	}
	text, err := t.text.RenderString(bindings)
	if err != nil {
		return "", "", fmt.Errorf("render confirmation text: %w", err)
	}
	return html, text, nil
}
