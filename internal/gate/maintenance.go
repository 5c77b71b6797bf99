package gate

import "kitabuddy/internal/model"

const MsgInvalidBypassPin = "Pin tidak sah!"

// ShouldBlock reports whether the maintenance interstitial covers view. The
// admin console is always exempt.
func ShouldBlock(view model.View, maintenanceMode, bypassed bool) bool {
	return maintenanceMode && !bypassed && view != model.ViewAdmin
}

// MaintenanceGate holds the session-local bypass. The shared maintenance flag
// lives in the settings service.
type MaintenanceGate struct {
	code       Code
	bypassed   bool
	dialogOpen bool
	err        string
}

func NewMaintenanceGate(code Code) *MaintenanceGate {
	return &MaintenanceGate{code: code}
}

func (g *MaintenanceGate) OpenDialog() {
	g.dialogOpen = true
	g.err = ""
}

func (g *MaintenanceGate) CloseDialog() {
	g.dialogOpen = false
	g.err = ""
}

// Bypass checks input against the bypass code. There is no lockout and the
// bypass holds until Reset.
func (g *MaintenanceGate) Bypass(input string) error {
	if !g.code.Matches(input) {
		g.err = MsgInvalidBypassPin
		return Auth(ErrInvalidPin, MsgInvalidBypassPin)
	}
	g.bypassed = true
	g.dialogOpen = false
	g.err = ""
	return nil
}

func (g *MaintenanceGate) Bypassed() bool   { return g.bypassed }
func (g *MaintenanceGate) DialogOpen() bool { return g.dialogOpen }
func (g *MaintenanceGate) Err() string      { return g.err }

func (g *MaintenanceGate) Reset() {
	g.bypassed = false
	g.dialogOpen = false
	g.err = ""
}
