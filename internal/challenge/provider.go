package challenge

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Provider produces the opaque challenge artifact shown to the user
// together with its expected answer. Rendering a human-solvable visual
// puzzle is an external concern; deployments inject their own Provider.
type Provider interface {
	Generate() (artifact string, answer string, err error)
}

// CodeProvider is the default Provider: a random alphanumeric code
// returned verbatim as the artifact. Suitable for development and for
// callers that render the code themselves.
type CodeProvider struct {
	Length int
}

// Ambiguous glyphs (0/O, 1/l/I) are excluded.
const codeAlphabet = "23456789abcdefghjkmnpqrstuvwxyz"

func (p CodeProvider) Generate() (string, string, error) {
	length := p.Length
	if length <= 0 {
		length = 5
	}

	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", "", fmt.Errorf("challenge code: %w", err)
		}
		code[i] = codeAlphabet[n.Int64()]
	}

	answer := string(code)
	return answer, answer, nil
}
