package models

import (
	"github.com/go-playground/validator"
)

// Platform decides how a push notification is shaped for a device token.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

func (l *Platform) Scan(value interface{}) error {
	*l = Platform(value.(string))
	return nil
}

func (l Platform) Value() (string, error) {
	return string(l), nil
}

func ValidatePlatform(fl validator.FieldLevel) bool {
	switch Platform(fl.Field().String()) {
	case PlatformIOS, PlatformAndroid, PlatformWeb:
		return true
	}
	return false
}
