package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/xela07ax/gad-tramites/internal/domain"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// renderMethod — полный путь метода внешнего сервиса шаблонов.
// Запрос и ответ передаются как google.protobuf.Struct.
const renderMethod = "/gad.render.v1.DocumentRenderer/Render"

// GRPCRenderer вызывает внешний сервис генерации документов (например, PDF с электронной подписью).
type GRPCRenderer struct {
	conn    grpc.ClientConnInterface
	timeout time.Duration
}

func NewGRPCRenderer(conn grpc.ClientConnInterface, timeout time.Duration) *GRPCRenderer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GRPCRenderer{conn: conn, timeout: timeout}
}

func (r *GRPCRenderer) Render(ctx context.Context, inst *domain.ProcedureInstance, def *domain.ProcedureDefinition) (*Document, error) {
	// 1. Собираем запрос
	fields := map[string]interface{}{
		"folio":           inst.FolioValue(),
		"definition_id":   def.ID,
		"procedure_name":  def.Name,
		"category":        string(def.Category),
		"citizen_name":    inst.Citizen.Name,
		"document_number": inst.Citizen.DocumentNumber,
		"motive":          inst.Motive,
	}
	if approved, ok := approvalTime(inst); ok {
		fields["approved_at"] = approved.Timestamp.UTC().Format(time.RFC3339)
		fields["approved_by"] = approved.Actor
	}
	if inst.Payment != nil {
		fields["payment_code"] = inst.Payment.Code
		fields["receipt_ref"] = inst.Payment.ReceiptRef
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("render: build request: %w", err)
	}

	// 2. Защитный таймаут на уровне вызова
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp := &structpb.Struct{}
	if err := r.conn.Invoke(ctx, renderMethod, req, resp); err != nil {
		return nil, fmt.Errorf("render: remote call failed: %w", err)
	}

	// 3. Разбираем ответ
	m := resp.GetFields()
	content, err := base64.StdEncoding.DecodeString(m["content"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("render: decode content: %w", err)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("render: remote renderer returned empty document")
	}
	doc := &Document{
		Content:     content,
		ContentType: m["content_type"].GetStringValue(),
		FileName:    m["file_name"].GetStringValue(),
	}
	if doc.ContentType == "" {
		doc.ContentType = "application/pdf"
	}
	if doc.FileName == "" {
		doc.FileName = inst.FolioValue() + ".pdf"
	}
	return doc, nil
}
