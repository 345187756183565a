package interview

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultTurnLimit       = 10
	DefaultCooldownSeconds = 5
	DefaultTick            = time.Second
)

// Config is the setup step's output: the target role and an optional resume.
type Config struct {
	Role       string
	ResumeText string

	TurnLimit       int
	CooldownSeconds int
	// Tick is the length of one countdown step.
	Tick time.Duration
}

func (c Config) withDefaults() Config {
	c.Role = strings.TrimSpace(c.Role)
	c.ResumeText = strings.TrimSpace(c.ResumeText)
	if c.TurnLimit <= 0 {
		c.TurnLimit = DefaultTurnLimit
	}
	if c.CooldownSeconds <= 0 {
		c.CooldownSeconds = DefaultCooldownSeconds
	}
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	return c
}

// Validate rejects a setup without a role.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Role) == "" {
		return fmt.Errorf("%w: role is required", ErrValidation)
	}
	return nil
}
