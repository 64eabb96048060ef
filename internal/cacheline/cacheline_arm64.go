// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build arm64

package cacheline

// Apple silicon and several server-class ARM64 parts (Ampere Altra,
// AWS Graviton3) use a 128-byte L1/L2 coherence granule.
const line = 128
