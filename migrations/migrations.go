// migrations — SQL-схема postgres-хранилища dev-бэкенда.
package migrations

import _ "embed"

// Init создаёт все таблицы; повторное применение ничего не меняет.
//
//go:embed 1_init.up.sql
var Init string
