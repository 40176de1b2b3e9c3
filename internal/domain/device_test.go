package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlatformMatchesIgnoresCase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		left  Platform
		right Platform
		want  bool
	}{
		{name: "same", left: PlatformIOS, right: PlatformIOS, want: true},
		{name: "mixed case", left: "iOS", right: "IOS", want: true},
		{name: "surrounding space", left: " android ", right: "Android", want: true},
		{name: "different", left: PlatformIOS, right: PlatformAndroid, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.left.Matches(tc.right))
		})
	}
}

func TestPlatformNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PlatformIOS, Platform(" iOS ").Normalize())
}

func TestDeviceDescriptorValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DeviceDescriptor{Identifier: "dev1"}.Validate())

	err := DeviceDescriptor{Identifier: "  "}.Validate()
	assert.ErrorIs(t, err, ErrInvalidDevice)
}

func TestDeviceDescriptorDisplayNameFallsBackToIdentifier(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "iPhone", DeviceDescriptor{Identifier: "dev1", Name: "iPhone"}.DisplayName())
	assert.Equal(t, "dev1", DeviceDescriptor{Identifier: "dev1"}.DisplayName())
}
