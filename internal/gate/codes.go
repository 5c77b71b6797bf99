package gate

import (
	"crypto/subtle"
	"errors"
)

// Code is a fixed authorization code. It is compared as a literal string so
// leading zeros are significant.
type Code string

func (c Code) Matches(input string) bool {
	if c == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c), []byte(input)) == 1
}

type Codes struct {
	AdminUnlock       Code
	MaintenanceBypass Code
	Publish           Code
}

func DefaultCodes() Codes {
	return Codes{
		AdminUnlock:       "21412141",
		MaintenanceBypass: "040013",
		Publish:           "090713040013",
	}
}

func (c Codes) Validate() error {
	if c.AdminUnlock == "" || c.MaintenanceBypass == "" || c.Publish == "" {
		return errors.New("admin unlock, maintenance bypass and publish codes are required")
	}
	if c.AdminUnlock == c.MaintenanceBypass || c.AdminUnlock == c.Publish || c.MaintenanceBypass == c.Publish {
		return errors.New("admin unlock, maintenance bypass and publish codes must be distinct")
	}
	return nil
}
