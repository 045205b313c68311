package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// ticketAlphabet leaves out characters that are easy to misread at a gate
// (0/O, 1/I/L).
const ticketAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const ticketCodeLength = 12

func GenerateID() string {
	return uuid.NewString()
}

// GenerateTicketCode returns an opaque code like "TCK-7KQ2-M9XA-4HPD".
func GenerateTicketCode() (string, error) {
	max := big.NewInt(int64(len(ticketAlphabet)))
	var b strings.Builder
	b.WriteString("TCK")
	for i := 0; i < ticketCodeLength; i++ {
		if i%4 == 0 {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate ticket code: %w", err)
		}
		b.WriteByte(ticketAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeTicketCode accepts codes typed by gate staff in any case with
// surrounding whitespace.
func NormalizeTicketCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
