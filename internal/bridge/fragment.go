package bridge

// Fragment naming scheme, fixed by the transcoder invocation policy.
const (
	fragmentPrefix  = "/live-"
	fragmentDigits  = 8
	fragmentSuffix  = ".ts"
	fragmentPathLen = len(fragmentPrefix) + fragmentDigits + len(fragmentSuffix)
)

// ParseFragment maps a raw request path to the fragment filename it names.
// Only paths of the exact shape "/live-NNNNNNNN.ts", with N an ASCII digit
// in all eight positions, are accepted. The returned name is the path minus
// its leading slash and is the only string ever joined onto the segment
// directory, so a request cannot address a file outside it. Callers treat
// a malformed path exactly like a missing file.
func ParseFragment(path string) (name string, ok bool) {
	if len(path) != fragmentPathLen {
		return "", false
	}
	if path[:len(fragmentPrefix)] != fragmentPrefix {
		return "", false
	}
	for i := len(fragmentPrefix); i < len(fragmentPrefix)+fragmentDigits; i++ {
		if path[i] < '0' || path[i] > '9' {
			return "", false
		}
	}
	if path[fragmentPathLen-len(fragmentSuffix):] != fragmentSuffix {
		return "", false
	}
	return path[1:], true
}
