package problem

import (
	"mime"
	"strings"
)

// Media types used for problem documents.
const (
	// MediaType is the RFC 7807 problem media type.
	MediaType = "application/problem+json"
	// XMediaType is the legacy vendor-tree variant some clients still request.
	XMediaType = "application/x.problem+json"
)

// Negotiate picks the content type for a problem response from an Accept
// header value. XMediaType is chosen only when the client asks for it and
// does not also accept MediaType; everything else gets MediaType.
func Negotiate(accept string) string {
	var wantsX bool
	for _, part := range strings.Split(accept, ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mt {
		case MediaType:
			return MediaType
		case XMediaType:
			wantsX = true
		}
	}
	if wantsX {
		return XMediaType
	}
	return MediaType
}
