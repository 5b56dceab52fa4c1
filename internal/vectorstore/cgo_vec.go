//go:build sqlite_vec && cgo

package vectorstore

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// Grounded verbatim on the teacher's internal/store/init_vec.go: register
// the sqlite-vec extension when building with -tags sqlite_vec. Only the
// registration lives here: Gateway.Search in gateway.go does not use the
// extension and runs its Go-side scan under either build.
func init() {
	vec.Auto()
}
