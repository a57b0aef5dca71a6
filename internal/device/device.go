package device

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a device has never been registered for the
// user.
var ErrNotFound = errors.New("device not found")

// Platform is the client platform a device reported at registration.
type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWindows Platform = "windows"
	PlatformLinux   Platform = "linux"
	PlatformMacOS   Platform = "macos"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformWeb, PlatformAndroid, PlatformIOS, PlatformWindows, PlatformLinux, PlatformMacOS:
		return true
	}

	return false
}

// Device is one registered client device of a user. LastSyncAt is the
// sync high-water mark: the latest server timestamp this device is known
// to have fully observed.
type Device struct {
	DeviceID   string
	UserID     uuid.UUID
	Name       string
	Platform   Platform
	LastSyncAt *time.Time
	IsActive   bool
	CreatedAt  time.Time
}
