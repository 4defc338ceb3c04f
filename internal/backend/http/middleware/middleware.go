// Package middleware — chi-мидлвары dev-бэкенда: request id, логирование,
// перехват паник, дедлайн запроса, метрики и bearer-аутентификация.
//
// Все мидлвары имеют форму func(http.Handler) http.Handler и подключаются
// через chi.Router.Use.
package middleware

import (
	"net/http"
)

// statusWriter запоминает статус и объём ответа, а также то, начат ли ответ.
// Logging, Metrics, Recover и Timeout делят один экземпляр на запрос (см. wrapWriter).
type statusWriter struct {
	http.ResponseWriter
	status      int
	count       int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}

	n, err := w.ResponseWriter.Write(p)
	w.count += n
	return n, err
}

// Status — итоговый код ответа; 200, если обработчик ничего не записал.
func (w *statusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Unwrap нужен http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// wrapWriter возвращает уже установленный statusWriter или оборачивает w.
func wrapWriter(w http.ResponseWriter) *statusWriter {
	if sw, ok := w.(*statusWriter); ok {
		return sw
	}
	return &statusWriter{ResponseWriter: w}
}
