package models

import (
	"github.com/go-playground/validator"
)

type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
	SeasonWinter Season = "winter"
	SeasonAll    Season = "all"
)

var Seasons = []Season{SeasonSpring, SeasonSummer, SeasonFall, SeasonWinter, SeasonAll}

func (s *Season) Scan(value interface{}) error {
	*s = Season(value.(string))
	return nil
}

func (s Season) Value() (string, error) {
	return string(s), nil
}

func (s Season) Valid() bool {
	switch s {
	case SeasonSpring, SeasonSummer, SeasonFall, SeasonWinter, SeasonAll:
		return true
	}
	return false
}

func ValidateSeason(fl validator.FieldLevel) bool {
	return Season(fl.Field().String()).Valid()
}

func ValidateSeasonRaw(value string) bool {
	return Season(value).Valid()
}
