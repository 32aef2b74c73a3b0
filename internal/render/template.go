package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/xela07ax/gad-tramites/internal/domain"
)

const certificateTemplate = `<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"><title>{{.Folio}}</title></head>
<body>
<h1>{{.Office}}</h1>
<h2>{{.Procedure}}</h2>
<p>Folio: <strong>{{.Folio}}</strong></p>
<p>Se certifica que el trámite solicitado por <strong>{{.CitizenName}}</strong>,
con documento de identidad N.º {{.DocumentNumber}}, fue aprobado el {{.ApprovedAt}}.</p>
{{- if .Motive}}
<p>Motivo: {{.Motive}}</p>
{{- end}}
{{- if .PaymentCode}}
<p>Comprobante de pago: {{.PaymentCode}}{{if .ReceiptRef}} ({{.ReceiptRef}}){{end}}</p>
{{- else}}
<p>Trámite gratuito.</p>
{{- end}}
<p>Aprobado por: {{.ApprovedBy}}</p>
</body>
</html>
`

type certificateData struct {
	Office         string
	Procedure      string
	Folio          string
	CitizenName    string
	DocumentNumber string
	Motive         string
	ApprovedAt     string
	ApprovedBy     string
	PaymentCode    string
	ReceiptRef     string
}

// TemplateRenderer — локальный рендер HTML-сертификата.
type TemplateRenderer struct {
	office string
	loc    *time.Location
	tmpl   *template.Template
}

func NewTemplateRenderer(office string, loc *time.Location) *TemplateRenderer {
	if loc == nil {
		loc = time.UTC
	}
	return &TemplateRenderer{
		office: office,
		loc:    loc,
		tmpl:   template.Must(template.New("certificate").Parse(certificateTemplate)),
	}
}

func (r *TemplateRenderer) Render(ctx context.Context, inst *domain.ProcedureInstance, def *domain.ProcedureDefinition) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if inst.Folio == nil {
		return nil, errors.New("render: instance has no folio")
	}
	approved, ok := approvalTime(inst)
	if !ok {
		return nil, errors.New("render: instance has no approval entry")
	}

	data := certificateData{
		Office:         r.office,
		Procedure:      def.Name,
		Folio:          *inst.Folio,
		CitizenName:    inst.Citizen.Name,
		DocumentNumber: inst.Citizen.DocumentNumber,
		Motive:         inst.Motive,
		ApprovedAt:     approved.Timestamp.In(r.loc).Format("02/01/2006"),
		ApprovedBy:     approved.Actor,
	}
	if inst.Payment != nil {
		data.PaymentCode = inst.Payment.Code
		data.ReceiptRef = inst.Payment.ReceiptRef
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render: execute template: %w", err)
	}
	return &Document{
		Content:     buf.Bytes(),
		ContentType: "text/html; charset=utf-8",
		FileName:    *inst.Folio + ".html",
	}, nil
}
