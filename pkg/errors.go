// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Error karşılaştırması string yerine referans ile yapılır:
//
//	if errors.Is(err, pkg.ErrNotFound) { ... }
//
// Detay eklemek için wrap edilir: fmt.Errorf("%w: channel archived", pkg.ErrBadRequest)
package pkg

import "errors"

// Domain-level error'lar.
// Handler katmanı bu error'ları HTTP status code'larına map'ler.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrBadRequest    = errors.New("bad request")
	ErrRateLimited   = errors.New("rate limited")
	ErrInternal      = errors.New("internal error")

	// ErrTransportFailure, email veya realtime gibi dış bir teslimat kanalının
	// başarısız olduğunu belirtir. Loglanır ve sayılır, tetikleyen işleme
	// geri yansıtılmaz.
	ErrTransportFailure = errors.New("transport failure")
)
