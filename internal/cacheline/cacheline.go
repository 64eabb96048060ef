// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cacheline resolves the destructive interference line size
// used to pad hot fields apart on the target architecture.
//
// Layout contract: Line is a compile-time constant selected by the
// //go:build tag of whichever file in this package matches GOARCH.
package cacheline

// Line is the cache line size, in bytes, used to separate
// concurrently-written fields and avoid false sharing.
const Line = line
