// Package config defines the per-printer Config entity persisted across
// restarts, and the Store interface that persists it.
package config

// Config is the identity and pairing state of a single printer session.
// A freshly created Config is pending: PrinterID is 0 and Token is "0".
// Pairing assigns a Token via NewToken; completing setup assigns a
// PrinterID via CompleteSetup.
type Config struct {
	PrinterID int64
	Token     string
	UniqueID  string
	PublicIP  string
	ShortID   string
	InSetup   bool
	Name      string
}

// NewPending returns a Config in its initial, unpaired state.
func NewPending(uniqueID string) *Config {
	return &Config{
		PrinterID: 0,
		Token:     "0",
		UniqueID:  uniqueID,
		InSetup:   true,
	}
}

// IsPending reports whether the config still needs pairing.
func (c *Config) IsPending() bool {
	return c.PrinterID == 0 || c.Token == "0"
}

// NewToken assigns a freshly issued token, as handed out during the
// pairing handshake.
func (c *Config) NewToken(token string) {
	c.Token = token
}

// CompleteSetup assigns the printer id granted by the server and clears
// the in-setup flag, unblocking the full event whitelist.
func (c *Config) CompleteSetup(printerID int64) {
	c.PrinterID = printerID
	c.InSetup = false
}
