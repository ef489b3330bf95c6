package hal

// Backend is the bulk pin interface a port implements. Tokens drive pins
// exclusively through these three calls; ids and the per-pin slices are
// always the same length.
type Backend interface {
	// HasPin reports whether the port knows the pin.
	HasPin(id PinID) bool
	// ConfigurePins applies cfgs[i] to ids[i]. A pin that cannot satisfy
	// ModeOutput fails with errcode.PinCannotOutput.
	ConfigurePins(ids []PinID, cfgs []PinConfig) error
	// WritePins drives levels[i] on ids[i]. Pins must be configured as outputs.
	WritePins(ids []PinID, levels []Level) error
	// ReadPins samples the current level of each pin.
	ReadPins(ids []PinID) ([]Level, error)
}

// Port is the full contract a pin-owning driver exposes. Concrete ports embed
// *Registry, which supplies Acquire, AcquireSet and the ownership invariant.
type Port interface {
	Backend

	// Name identifies the port in errors and logs.
	Name() string
	// GlobalID maps a port-local pin id to the platform's global numbering,
	// if the port has one.
	GlobalID(id PinID) (int, bool)

	// Acquire mints the exclusive token for one pin. Fails with
	// errcode.UnknownPin for ids the port does not know and
	// errcode.PinInUse while another token is live.
	Acquire(id PinID) (*PinAccess, error)
	// AcquireSet mints one token owning the ordered pin set.
	AcquireSet(ids ...PinID) (*PinSetAccess, error)
}
