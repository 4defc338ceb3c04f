// interceptors предоставляет набор middleware для исходящих HTTP-запросов
// (http.RoundTripper), собираемых в цепочку вокруг транспорта клиента.
package interceptors

import "net/http"

// RoundTripperFunc — адаптер функции к http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Interceptor оборачивает транспорт.
type Interceptor func(next http.RoundTripper) http.RoundTripper

// Chain собирает цепочку: первый interceptor — внешний.
// base == nil — http.DefaultTransport.
func Chain(base http.RoundTripper, ics ...Interceptor) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	rt := base
	for i := len(ics) - 1; i >= 0; i-- {
		if ics[i] != nil {
			rt = ics[i](rt)
		}
	}

	return rt
}

// clone — RoundTripper не должен менять входящий запрос.
func clone(r *http.Request) *http.Request {
	return r.Clone(r.Context())
}
