// Package templates renders the storefront's back office emails.
package templates

import (
	"bytes"
	"html/template"
	"strings"
)

// Notice is one back office email: a headline over the detail rows of a
// vehicle, submission or digest, with an optional link into the admin pages
type Notice struct {
	Subject  string
	Headline string
	Intro    string
	Items    []Item
	// Note is free text from the customer, shown quoted under the items
	Note   string
	Action *Action
}

// Item is one label/value row
type Item struct {
	Label string
	Value string
}

// Action is the call-to-action button
type Action struct {
	Label string
	URL   string
}

// Text is the plain-text alternative of the notice
func (n Notice) Text() string {
	var b strings.Builder
	b.WriteString(n.Headline)
	b.WriteString("\n\n")
	if n.Intro != "" {
		b.WriteString(n.Intro)
		b.WriteString("\n\n")
	}
	for _, it := range n.Items {
		b.WriteString(it.Label + ": " + it.Value + "\n")
	}
	if n.Note != "" {
		b.WriteString("\n" + n.Note + "\n")
	}
	if n.Action != nil {
		b.WriteString("\n" + n.Action.Label + ": " + n.Action.URL + "\n")
	}
	return b.String()
}

var noticeTemplate = template.Must(template.New("notice").Funcs(template.FuncMap{
	"lines": func(s string) []string { return strings.Split(s, "\n") },
}).Parse(`<!DOCTYPE html>
<html>
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background:#f4f1ec;font-family:Helvetica,Arial,sans-serif;color:#1c1c1c;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="background:#f4f1ec;">
    <tr><td align="center" style="padding:24px 12px;">
      <table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:6px;">
        <tr><td style="background:#111111;padding:20px 28px;">
          <span style="color:#e4b44c;font-size:13px;letter-spacing:3px;">ZOE MOTORS</span>
          <h1 style="color:#ffffff;font-size:21px;margin:8px 0 0;">{{.Headline}}</h1>
        </td></tr>
        {{- if .Intro}}
        <tr><td style="padding:24px 28px 8px;font-size:15px;line-height:1.5;">
          {{- range $i, $l := lines .Intro}}{{if $i}}<br>{{end}}{{$l}}{{end -}}
        </td></tr>
        {{- end}}
        {{- if .Items}}
        <tr><td style="padding:8px 28px;">
          <table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="border-top:1px solid #e6e0d6;">
            {{- range .Items}}
            <tr>
              <td style="padding:9px 0;border-bottom:1px solid #e6e0d6;color:#6b6257;font-size:13px;width:40%;">{{.Label}}</td>
              <td style="padding:9px 0;border-bottom:1px solid #e6e0d6;font-size:14px;font-weight:bold;">{{.Value}}</td>
            </tr>
            {{- end}}
          </table>
        </td></tr>
        {{- end}}
        {{- if .Note}}
        <tr><td style="padding:12px 28px;">
          <blockquote style="margin:0;padding:12px 16px;background:#faf7f2;border-left:3px solid #e4b44c;font-size:14px;">
            {{- range $i, $l := lines .Note}}{{if $i}}<br>{{end}}{{$l}}{{end -}}
          </blockquote>
        </td></tr>
        {{- end}}
        {{- with .Action}}
        <tr><td style="padding:16px 28px 28px;">
          <a href="{{.URL}}" style="display:inline-block;background:#e4b44c;color:#111111;text-decoration:none;font-weight:bold;padding:11px 22px;border-radius:4px;">{{.Label}}</a>
        </td></tr>
        {{- end}}
        <tr><td style="padding:16px 28px;border-top:1px solid #e6e0d6;color:#8a8178;font-size:12px;">
          Zoe Motors, Addis Ababa. You receive this because you administer the storefront.
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`))

// RenderNotice renders n as the branded HTML email body. Every field is
// escaped; newlines in Intro and Note become line breaks.
func RenderNotice(n Notice) (string, error) {
	var buf bytes.Buffer
	if err := noticeTemplate.Execute(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
