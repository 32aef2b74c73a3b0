package db

import "embed"

// MigrationFS — встроенные SQL миграции (cmd/migrate и автомиграция при старте портала).
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
