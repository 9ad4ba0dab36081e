// Package version несёт данные о сборке, заполняемые через -ldflags.
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "unknown"
	BuiltAt = "unknown"
)

// String возвращает сводку о сборке для логов и /version.
func String() string {
	return fmt.Sprintf("version=%s commit=%s built_at=%s", Version, Commit, BuiltAt)
}
