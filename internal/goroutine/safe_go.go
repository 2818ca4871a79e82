package goroutine

import (
	"runtime/debug"

	"github.com/lostfoundhub/lostfound-backend/internal/logger"
)

// SafeGo запускает горутину с обработкой panic. Используется для побочных
// эффектов (почта, удаление файлов), которые не должны ронять процесс.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if logger.Log != nil {
					logger.Log.Errorf("panic in goroutine: %v\nstack:\n%s", r, debug.Stack())
				}
			}
		}()
		fn()
	}()
}
