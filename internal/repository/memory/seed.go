package memory

import (
	"time"

	"github.com/xela07ax/gad-tramites/internal/domain"
)

// SeedCatalog — стартовый каталог для режима storage=memory
// (совпадает с миграцией 000002_seed_catalog).
func SeedCatalog(now time.Time) []domain.ProcedureDefinition {
	defs := []domain.ProcedureDefinition{
		{ID: "CERT-RESIDENCIA", Name: "Certificado de residencia", Category: domain.CategoryCertification,
			ExpectedDuration: "2 días hábiles", Requirements: "Copia de cédula de identidad",
			RequiresAttachment: true, MinAttachments: 1},
		{ID: "CERT-NO-ADEUDAR", Name: "Certificado de no adeudar al municipio", Category: domain.CategoryCertification,
			CostCents: 300, ExpectedDuration: "1 día hábil", Requirements: "Número de cédula del solicitante"},
		{ID: "CERT-AVALUO", Name: "Certificado de avalúo catastral", Category: domain.CategoryCertification,
			CostCents: 500, ExpectedDuration: "3 días hábiles", Requirements: "Clave catastral del predio y copia de escritura",
			RequiresAttachment: true, MinAttachments: 1},
		{ID: "PERM-FUNCIONAMIENTO", Name: "Permiso de funcionamiento", Category: domain.CategoryPermit,
			CostCents: 2500, ExpectedDuration: "5 días hábiles", Requirements: "RUC, copia de cédula y certificado de bomberos",
			RequiresAttachment: true, MinAttachments: 3},
		{ID: "PERM-CONSTRUCCION", Name: "Permiso de construcción menor", Category: domain.CategoryPermit,
			CostCents: 4000, ExpectedDuration: "10 días hábiles", Requirements: "Planos firmados, escritura y pago del predio al día",
			RequiresAttachment: true, MinAttachments: 2},
	}
	for i := range defs {
		defs[i].Active = true
		defs[i].CreatedAt = now
		defs[i].UpdatedAt = now
	}
	return defs
}
