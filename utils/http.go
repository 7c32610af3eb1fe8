/*
 * Copyright 2022 The Go Authors<36625090@qq.com>. All rights reserved.
 * Use of this source code is governed by a MIT-style
 * license that can be found in the LICENSE file.
 */

package utils

import (
	"net"
	"net/http"
	"strings"
)

// GetRemoteAddr returns the client address, preferring proxy headers.
func GetRemoteAddr(r *http.Request) string {
	remoteAddr := r.Header.Get("X-Forwarded-For")
	if remoteAddr != "" {
		// 只取第一跳
		if idx := strings.Index(remoteAddr, ","); idx >= 0 {
			remoteAddr = remoteAddr[:idx]
		}
		return strings.TrimSpace(remoteAddr)
	}
	remoteAddr = r.Header.Get("X-Real-IP")
	if remoteAddr != "" {
		return remoteAddr
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
