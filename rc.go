package loralink

// RC is the result code returned by every transport operation. It is a
// comparable newtype and implements error, so a non-Okay code can be handed
// straight up a caller's error path.
type RC uint8

const (
	Okay RC = iota
	AlreadyInit
	NotInit
	InitFailed
	DeinitFailed
	SetFrequencyFailed
	SendFailed
	RecvFailed
	TimedOut
)

var rcNames = [...]string{
	Okay:               "okay",
	AlreadyInit:        "already initialized",
	NotInit:            "not initialized",
	InitFailed:         "init failed",
	DeinitFailed:       "deinit failed",
	SetFrequencyFailed: "set frequency failed",
	SendFailed:         "send failed",
	RecvFailed:         "recv failed",
	TimedOut:           "timed out",
}

func (rc RC) String() string {
	if int(rc) < len(rcNames) {
		return rcNames[rc]
	}
	return "unknown"
}

func (rc RC) Error() string { return rc.String() }
