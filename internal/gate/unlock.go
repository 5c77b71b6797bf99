package gate

const MsgInvalidAdminPin = "Pin Induk tidak sah. Sila cuba lagi."

// AdminUnlockGate guards the admin console data views. It is session scoped
// and has no retry limit.
type AdminUnlockGate struct {
	code     Code
	unlocked bool
	err      string
}

func NewAdminUnlockGate(code Code) *AdminUnlockGate {
	return &AdminUnlockGate{code: code}
}

// Unlock reports whether input matched. Callers trigger the initial data
// loads only on a nil return. A mismatch only records the error; an already
// unlocked console stays unlocked.
func (g *AdminUnlockGate) Unlock(input string) error {
	if !g.code.Matches(input) {
		g.err = MsgInvalidAdminPin
		return Auth(ErrInvalidPin, MsgInvalidAdminPin)
	}
	g.unlocked = true
	g.err = ""
	return nil
}

func (g *AdminUnlockGate) Unlocked() bool { return g.unlocked }
func (g *AdminUnlockGate) Err() string    { return g.err }

func (g *AdminUnlockGate) Reset() {
	g.unlocked = false
	g.err = ""
}
