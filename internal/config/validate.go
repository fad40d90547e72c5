package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateRemux(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCapture() error {
	if !strings.Contains(c.Capture.Display, ":") {
		return fmt.Errorf("capture.display %q must be an X display name such as :0.0", c.Capture.Display)
	}
	if strings.ContainsAny(c.Capture.Container, `/\ `) {
		return fmt.Errorf("capture.container %q is not a valid file extension", c.Capture.Container)
	}
	if c.Capture.StopTimeout <= 0 {
		return errors.New("capture.stop_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateRemux() error {
	if strings.ContainsAny(c.Remux.TargetContainer, `/\ `) {
		return fmt.Errorf("remux.target_container %q is not a valid file extension", c.Remux.TargetContainer)
	}
	if c.Remux.TargetContainer == c.Capture.Container {
		return errors.New("remux.target_container must differ from capture.container")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if !c.API.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.API.Bind); err != nil {
		return fmt.Errorf("api.bind %q: %w", c.API.Bind, err)
	}
	return nil
}
