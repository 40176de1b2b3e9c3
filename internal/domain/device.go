package domain

import (
	"fmt"
	"strings"
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

func (p Platform) Normalize() Platform {
	return Platform(strings.ToLower(strings.TrimSpace(string(p))))
}

// Matches reports whether two platform names are equal ignoring case.
func (p Platform) Matches(other Platform) bool {
	return strings.EqualFold(strings.TrimSpace(string(p)), strings.TrimSpace(string(other)))
}

type DeviceDescriptor struct {
	Identifier string
	Platform   Platform
	Name       string
	Model      string
	Emulator   bool
}

func (d DeviceDescriptor) Validate() error {
	if strings.TrimSpace(d.Identifier) == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidDevice)
	}

	return nil
}

func (d DeviceDescriptor) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}

	return d.Identifier
}
