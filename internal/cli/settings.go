package cli

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const (
	ModeAPI   = "api"
	ModeLocal = "local"
)

// Settings come from MEDCTL_* environment variables. Command-line flags
// override them.
type Settings struct {
	Mode        string `envconfig:"MODE" default:"api"`
	APIURL      string `envconfig:"API_URL" default:"http://localhost:5000"`
	DataDir     string `envconfig:"DATA_DIR"`
	SessionFile string `envconfig:"SESSION_FILE"`
}

func LoadSettings() (Settings, error) {
	var s Settings
	if err := envconfig.Process("medctl", &s); err != nil {
		return Settings{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return s, nil
}

func (s Settings) Validate() error {
	switch s.Mode {
	case ModeAPI, ModeLocal:
		return nil
	default:
		return fmt.Errorf("unknown mode %q (want %s or %s)", s.Mode, ModeAPI, ModeLocal)
	}
}
