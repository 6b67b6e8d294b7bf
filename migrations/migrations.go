// Package migrations 内嵌 MySQL 迁移脚本，供 migrate-up 命令使用
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
