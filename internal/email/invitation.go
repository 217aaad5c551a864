package email

import (
	"bytes"
	"fmt"
	htemplate "html/template"
	ttemplate "text/template"
	"time"
)

// InvitationVars son las variables del template de invitación.
type InvitationVars struct {
	SchoolName    string
	ClassroomName string
	Role          string // "PARENT" | "TEACHER"
	Link          string
	ExpiresAt     time.Time
}

const invitationText = `Te invitaron a {{.ClassroomName}} ({{.SchoolName}}) como {{roleLabel .Role}}.

Abrí este link desde tu teléfono para unirte:
{{.Link}}

El link vence el {{.ExpiresAt.Format "02/01/2006"}}.
`

const invitationHTML = `<p>Te invitaron a <strong>{{.ClassroomName}}</strong> ({{.SchoolName}}) como {{roleLabel .Role}}.</p>
<p><a href="{{.Link}}">Unirme</a></p>
<p>El link vence el {{.ExpiresAt.Format "02/01/2006"}}.</p>
`

var funcs = map[string]any{
	"roleLabel": func(r string) string {
		switch r {
		case "TEACHER":
			return "docente"
		case "PARENT":
			return "familia"
		}
		return r
	},
}

var (
	invitationTextTmpl = ttemplate.Must(ttemplate.New("invitation_text").Funcs(funcs).Parse(invitationText))
	invitationHTMLTmpl = htemplate.Must(htemplate.New("invitation_html").Funcs(funcs).Parse(invitationHTML))
)

// RenderInvitation arma subject, HTML y texto del email de invitación.
func RenderInvitation(v InvitationVars) (subject, html, text string, err error) {
	var hb, tb bytes.Buffer
	if err := invitationHTMLTmpl.Execute(&hb, v); err != nil {
		return "", "", "", fmt.Errorf("email: render html: %w", err)
	}
	if err := invitationTextTmpl.Execute(&tb, v); err != nil {
		return "", "", "", fmt.Errorf("email: render text: %w", err)
	}
	return "Invitación a " + v.ClassroomName, hb.String(), tb.String(), nil
}
