// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !arm64

package cacheline

// amd64 and everything else in the corpus's supported set uses a
// 64-byte coherence granule.
const line = 64
