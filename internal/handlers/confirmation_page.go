package handlers

import (
	"html/template"
	"io"

	"github.com/cotuzatours/booking-backend/internal/models"
)

// Confirmation outcomes shown to the customer
const (
	ConfirmationNone        = "none"         // no transaction id on the redirect
	ConfirmationConfirmed   = "confirmed"    // booking stored
	ConfirmationNotApproved = "not_approved" // provider reported a non-approved status
	ConfirmationPending     = "pending"      // status could not be confirmed yet
)

// ConfirmationView is the data handed to the confirmation page
type ConfirmationView struct {
	Outcome       string
	TransactionID string
	Booking       *models.Booking
}

// Renderer renders the page shown after the provider redirect
type Renderer interface {
	RenderConfirmation(w io.Writer, view ConfirmationView) error
}

// TemplateRenderer renders pages from an html/template
type TemplateRenderer struct {
	tmpl *template.Template
}

// NewTemplateRenderer parses the template files at path, or uses the built-in page when path is empty
func NewTemplateRenderer(path string) (*TemplateRenderer, error) {
	if path == "" {
		return &TemplateRenderer{tmpl: defaultConfirmationTemplate}, nil
	}

	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return nil, err
	}
	return &TemplateRenderer{tmpl: tmpl}, nil
}

func (r *TemplateRenderer) RenderConfirmation(w io.Writer, view ConfirmationView) error {
	return r.tmpl.Execute(w, view)
}

var defaultConfirmationTemplate = template.Must(template.New("payment_success").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Cotuza Tours - Pago</title>
</head>
<body>
{{- if eq .Outcome "confirmed" }}
<h1>¡Reserva confirmada!</h1>
<p>Tu pago fue aprobado. Te esperamos el {{ .Booking.Date }} ({{ .Booking.People }} persona{{ if gt .Booking.People 1 }}s{{ end }}).</p>
<p>Transacción: {{ .TransactionID }}</p>
{{- else if eq .Outcome "not_approved" }}
<h1>Pago no aprobado</h1>
<p>Tu pago no fue aprobado y no se realizó ninguna reserva.</p>
{{- else if eq .Outcome "pending" }}
<h1>Estamos verificando tu pago</h1>
<p>Aún no podemos confirmar tu reserva. Si el pago fue aprobado, la confirmaremos en breve.</p>
{{- else }}
<h1>Gracias por visitarnos</h1>
{{- end }}
</body>
</html>
`))
