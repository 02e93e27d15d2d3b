package domain

// Action represents the type of trading action proposed for a tick.
type Action int

const (
	ActionHold Action = iota
	ActionProbeBuy
	ActionAddBuy
	ActionScaleOut20
	ActionExitFull
)

const (
	actionStringHold       = "HOLD"
	actionStringProbeBuy   = "PROBE_BUY"
	actionStringAddBuy     = "ADD_BUY"
	actionStringScaleOut20 = "SCALE_OUT_20"
	actionStringExitFull   = "EXIT_FULL"
)

// String returns the wire representation of the action.
func (a Action) String() string {
	switch a {
	case ActionHold:
		return actionStringHold
	case ActionProbeBuy:
		return actionStringProbeBuy
	case ActionAddBuy:
		return actionStringAddBuy
	case ActionScaleOut20:
		return actionStringScaleOut20
	case ActionExitFull:
		return actionStringExitFull
	default:
		return "unknown"
	}
}

// IsEntry reports whether the action opens or increases a position.
func (a Action) IsEntry() bool {
	return a == ActionProbeBuy || a == ActionAddBuy
}

// IsExit reports whether the action reduces or closes a position.
func (a Action) IsExit() bool {
	return a == ActionScaleOut20 || a == ActionExitFull
}

// MarshalText makes actions serialize as their wire strings in JSON logs.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}
