package token

// Purpose binds a token to one account flow.
type Purpose string

const (
	PurposeConfirm     Purpose = "confirm"
	PurposeReset       Purpose = "reset"
	PurposeChangeEmail Purpose = "change_email"
)

// Purposes lists every accepted purpose.
var Purposes = []Purpose{PurposeConfirm, PurposeReset, PurposeChangeEmail}

// Valid reports whether p is one of the fixed purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeConfirm, PurposeReset, PurposeChangeEmail:
		return true
	}
	return false
}

func (p Purpose) String() string {
	return string(p)
}

// ParsePurpose converts s into a Purpose, reporting false for unknown names.
func ParsePurpose(s string) (Purpose, bool) {
	p := Purpose(s)
	return p, p.Valid()
}
