package config

import (
	"github.com/spf13/pflag"
)

// Flags is the command-line layer of the configuration. Only flags given on
// the command line override the lower layers.
type Flags struct {
	set *pflag.FlagSet
	// Path of the YAML config file.
	ConfigPath string
	v          AppConfig
}

// NewFlags registers the station flags on a new flag set named name.
func NewFlags(name string) *Flags {
	f := &Flags{set: pflag.NewFlagSet(name, pflag.ContinueOnError)}
	d := DefaultConfig()
	fs := f.set
	fs.StringVar(&f.ConfigPath, "config", "", "path to a YAML config file")
	fs.StringVar(&f.v.Secret, "secret", "", "HMAC key in plain text (replaces the default test key)")
	fs.StringVar(&f.v.SecretFile, "secret-file", "", "file holding the HMAC key")
	fs.StringVar(&f.v.ChainPath, "chain", d.ChainPath, "chain file")
	fs.DurationVar(&f.v.ScanTimeout, "timeout", d.ScanTimeout, "how long to wait for a code")
	fs.StringVar(&f.v.Scanner, "scanner", d.Scanner, `code source: "console" or "dir:<path>"`)
	fs.StringVar(&f.v.OutputDir, "out", d.OutputDir, "directory for rendered codes, empty to disable")
	fs.IntVar(&f.v.QRSize, "qr-size", d.QRSize, "side of rendered codes in pixels")
	fs.BoolVar(&f.v.RequireSignature, "require-signature", false, "reject plain JSON codes")
	fs.StringVar(&f.v.StatusAddr, "status-addr", "", "listen address of the gRPC health endpoint")
	fs.Int64Var(&f.v.SensorSeed, "sensor-seed", 0, "seed of the simulated sensors, 0 for the clock")
	fs.BoolVar(&f.v.DebugMode, "debug_mode", false, "Using debug mode will disable fancy GUI.")
	return f
}

// FlagSet exposes the underlying flags, e.g. for usage output.
func (f *Flags) FlagSet() *pflag.FlagSet {
	return f.set
}

// Parse parses args, which should not include the program name.
func (f *Flags) Parse(args []string) error {
	return f.set.Parse(args)
}

// Apply copies every flag that was set onto c.
func (f *Flags) Apply(c *AppConfig) {
	f.set.Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "secret":
			c.Secret = f.v.Secret
			c.SecretFile = ""
		case "secret-file":
			c.SecretFile = f.v.SecretFile
		case "chain":
			c.ChainPath = f.v.ChainPath
		case "timeout":
			c.ScanTimeout = f.v.ScanTimeout
		case "scanner":
			c.Scanner = f.v.Scanner
		case "out":
			c.OutputDir = f.v.OutputDir
		case "qr-size":
			c.QRSize = f.v.QRSize
		case "require-signature":
			c.RequireSignature = f.v.RequireSignature
		case "status-addr":
			c.StatusAddr = f.v.StatusAddr
		case "sensor-seed":
			c.SensorSeed = f.v.SensorSeed
		case "debug_mode":
			c.DebugMode = f.v.DebugMode
		}
	})
}
