package schemas

import "embed"

// SchemasFS содержит JSON-схемы ответов языковой модели
//
//go:embed llm
var SchemasFS embed.FS
