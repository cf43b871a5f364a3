package store

import "crypto/rand"

// codeCharset excludes visually similar characters (0/O, 1/I) the way the
// original session manager's code generator does.
const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 6

// generateCode returns a random session code drawn from codeCharset. It
// does not check for collisions; callers retry against the store under
// rejection sampling, the same pattern the partybox game-ID generator uses
// against its live hub table.
func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, codeLength)
	for i, b := range buf {
		out[i] = codeCharset[int(b)%len(codeCharset)]
	}
	return string(out), nil
}
