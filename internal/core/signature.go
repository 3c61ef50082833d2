package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// LegacyDelimiter joins the fields of the string form of a Signature.
const LegacyDelimiter = "_"

// Signature is the economic identity of a transaction: its trimmed date and
// description plus both amounts normalized to two decimals. It is
// comparable and is used directly as a map key.
type Signature struct {
	Date        string
	Description string
	Withdrawal  string
	Deposit     string
}

// SignatureOf computes the identity of a row. It never fails.
func SignatureOf(t RawTransaction) Signature {
	return Signature{
		Date:        strings.TrimSpace(t.Date),
		Description: strings.TrimSpace(t.Description),
		Withdrawal:  NormalizeAmount(t.Withdrawal),
		Deposit:     NormalizeAmount(t.Deposit),
	}
}

// String renders the underscore-joined form exchanged with older clients.
// Descriptions containing the delimiter can collide in this form; use Key
// when an unambiguous string is needed.
func (s Signature) String() string {
	return strings.Join([]string{s.Date, s.Description, s.Withdrawal, s.Deposit}, LegacyDelimiter)
}

// Key renders each field length-prefixed, e.g. "10:2024-01-05|11:Coffee Shop|...".
func (s Signature) Key() string {
	var b strings.Builder
	for i, f := range []string{s.Date, s.Description, s.Withdrawal, s.Deposit} {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Itoa(len(f)))
		b.WriteByte(':')
		b.WriteString(f)
	}
	return b.String()
}

// Hash is the hex sha256 of Key.
func (s Signature) Hash() string {
	sum := sha256.Sum256([]byte(s.Key()))
	return hex.EncodeToString(sum[:])
}
