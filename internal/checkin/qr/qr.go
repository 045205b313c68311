package qr

import (
	"errors"

	"github.com/skip2/go-qrcode"
)

const DefaultSize = 256

type Generator struct {
	Size  int
	Level qrcode.RecoveryLevel
}

func NewGenerator(size int) *Generator {
	if size <= 0 {
		size = DefaultSize
	}
	return &Generator{Size: size, Level: qrcode.Medium}
}

// TicketPNG encodes the ticket code as it is typed at the gate, so a scanner
// and a keyboard produce the same lookup.
func (g *Generator) TicketPNG(ticketCode string) ([]byte, error) {
	if ticketCode == "" {
		return nil, errors.New("empty ticket code")
	}
	return qrcode.Encode(ticketCode, g.Level, g.Size)
}
