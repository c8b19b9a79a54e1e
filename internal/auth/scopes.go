package auth

// scopeBits maps permission bits returned by getUserSettings to scope names.
var scopeBits = []struct {
	bit   int64
	scope string
}{
	{1, "notify"},
	{2, "friends"},
	{4, "photos"},
	{8, "audio"},
	{16, "video"},
	{32, "offers"},
	{64, "questions"},
	{128, "pages"},
	{1024, "status"},
	{2048, "notes"},
	{4096, "messages"},
	{8192, "wall"},
	{32768, "ads"},
	{65536, "offline"},
	{131072, "docs"},
	{262144, "groups"},
	{524288, "notifications"},
	{1048576, "stats"},
	{4194304, "email"},
}

// ScopesFromMask lists the scopes granted by a settings bitmask. Bits with
// no scope name are ignored.
func ScopesFromMask(mask int64) []string {
	out := []string{}
	for _, s := range scopeBits {
		if mask&s.bit != 0 {
			out = append(out, s.scope)
		}
	}
	return out
}

// MaskFromScopes is the inverse of ScopesFromMask. Unknown names are skipped.
func MaskFromScopes(scopes []string) int64 {
	var mask int64
	for _, name := range scopes {
		for _, s := range scopeBits {
			if s.scope == name {
				mask |= s.bit
			}
		}
	}
	return mask
}
