//go:build !swagger

package httpapi

import "github.com/go-chi/chi/v5"

// MountSwagger does nothing in default builds: the OpenAPI UI pulls in the
// swaggo toolchain, which release binaries of llmd do not carry. Build with
// -tags=swagger to serve it at /swagger/.
func MountSwagger(r chi.Router) {}
