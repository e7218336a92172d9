package utils

import (
    "crypto/rand"
    "math/big"
    "regexp"
    "strings"
)

// regTokenAlphabet contains uppercase letters and digits with the easily
// confused characters removed (I, O, 0, 1).  Registration tokens are read
// off a screen and typed into a device console, so every character must be
// unambiguous.
const regTokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// regTokenGroupLen is the number of characters per group and
// regTokenGroups the number of hyphen separated groups.  Two groups of
// four over a 32 character alphabet give 32^8 possible values, which keeps
// the collision probability low enough for a small uniqueness retry loop.
const (
    regTokenGroupLen = 4
    regTokenGroups   = 2
)

var regTokenPattern = regexp.MustCompile(`^[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}$`)

// NewRegistrationToken returns a human-typeable token in the form
// "XXXX-XXXX".  Characters are drawn from regTokenAlphabet using
// crypto/rand.  On failure of the random source an error is returned.
func NewRegistrationToken() (string, error) {
    groups := make([]string, 0, regTokenGroups)
    max := big.NewInt(int64(len(regTokenAlphabet)))
    for g := 0; g < regTokenGroups; g++ {
        var sb strings.Builder
        for i := 0; i < regTokenGroupLen; i++ {
            n, err := rand.Int(rand.Reader, max)
            if err != nil {
                return "", err
            }
            sb.WriteByte(regTokenAlphabet[n.Int64()])
        }
        groups = append(groups, sb.String())
    }
    return strings.Join(groups, "-"), nil
}

// IsRegistrationToken reports whether s matches the grouped token format.
// Handlers use it to reject obviously malformed values before touching the
// database.
func IsRegistrationToken(s string) bool {
    return regTokenPattern.MatchString(s)
}
