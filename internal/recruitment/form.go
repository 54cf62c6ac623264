// SPDX-License-Identifier: MIT

// Package recruitment validates and stores recruitment form submissions and
// notifies the crew about accepted ones.
package recruitment

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// HoneypotField is the hidden input that must stay blank.
const HoneypotField = "recruitment-notes-field"

// FieldNames lists the accepted form fields in display order.
var FieldNames = []string{
	"name",
	"alias",
	"age",
	"location",
	"discordHandle",
	"youtubeChannelUrl",
	"bestAmvUrl",
	"recentAmvUrl",
	"introduction",
	"availability",
}

// Form holds normalized answers.
type Form struct {
	Name              string `json:"name" form:"name" validate:"required"`
	Alias             string `json:"alias" form:"alias" validate:"required"`
	Age               string `json:"age" form:"age" validate:"required,age_digits,age_range"`
	Location          string `json:"location" form:"location" validate:"required"`
	DiscordHandle     string `json:"discordHandle" form:"discordHandle" validate:"min=2,discord_handle"`
	YoutubeChannelURL string `json:"youtubeChannelUrl" form:"youtubeChannelUrl" validate:"url,http_url,youtube_url"`
	BestAMVURL        string `json:"bestAmvUrl" form:"bestAmvUrl" validate:"url,http_url,youtube_url"`
	RecentAMVURL      string `json:"recentAmvUrl" form:"recentAmvUrl" validate:"url,http_url,youtube_url"`
	Introduction      string `json:"introduction" form:"introduction" validate:"min=30"`
	Availability      string `json:"availability" form:"availability"`
}

var (
	ageDigits     = regexp.MustCompile(`^[0-9]{1,3}$`)
	discordHandle = regexp.MustCompile(`(?i)^.{2,32}#[0-9]{4}$`)
	youtubeURL    = regexp.MustCompile(`(?i)^(https?://)?(www\.)?(youtube\.com|youtu\.be)/`)
)

// fieldMessages maps field and failing tag to the user-facing message.
var fieldMessages = map[string]map[string]string{
	"name":          {"required": "Name is required."},
	"alias":         {"required": "Alias is required."},
	"location":      {"required": "Location is required."},
	"age":           {"required": "Age is required.", "age_digits": "Age must be a valid number.", "age_range": "Age must be between 13 and 120."},
	"discordHandle": {"min": "Discord handle is required.", "discord_handle": "Use username#1234 format for Discord handles."},
	"introduction":  {"min": "Share at least 30 characters about yourself."},
}

var urlMessages = map[string]string{
	"url":         "Provide a valid URL.",
	"http_url":    "URL must begin with http:// or https://.",
	"youtube_url": "Provide a valid YouTube URL.",
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// formValidator returns the shared validator with the recruitment rules registered.
func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			return f.Tag.Get("form")
		})
		must := func(err error) {
			if err != nil {
				panic(err)
			}
		}
		must(v.RegisterValidation("age_digits", func(fl validator.FieldLevel) bool {
			return ageDigits.MatchString(fl.Field().String())
		}))
		must(v.RegisterValidation("age_range", func(fl validator.FieldLevel) bool {
			n, err := strconv.Atoi(fl.Field().String())
			return err == nil && n >= 13 && n <= 120
		}))
		must(v.RegisterValidation("discord_handle", func(fl validator.FieldLevel) bool {
			return discordHandle.MatchString(fl.Field().String())
		}))
		must(v.RegisterValidation("youtube_url", func(fl validator.FieldLevel) bool {
			return youtubeURL.MatchString(fl.Field().String())
		}))
		validate = v
	})
	return validate
}

// normalizeValue trims and NFC-normalizes a submitted value.
func normalizeValue(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ParseForm builds a Form from raw values, normalizing each one.
func ParseForm(fields map[string]string) Form {
	get := func(k string) string { return normalizeValue(fields[k]) }
	return Form{
		Name:              get("name"),
		Alias:             get("alias"),
		Age:               get("age"),
		Location:          get("location"),
		DiscordHandle:     get("discordHandle"),
		YoutubeChannelURL: get("youtubeChannelUrl"),
		BestAMVURL:        get("bestAmvUrl"),
		RecentAMVURL:      get("recentAmvUrl"),
		Introduction:      get("introduction"),
		Availability:      get("availability"),
	}
}

// Validate checks f and returns a message per failing field, or nil.
func (f Form) Validate() map[string]string {
	err := formValidator().Struct(f)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"form": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = message(fe.Field(), fe.Tag())
	}
	return out
}

func message(field, tag string) string {
	if m, ok := fieldMessages[field][tag]; ok {
		return m
	}
	if m, ok := urlMessages[tag]; ok {
		return m
	}
	return "Invalid value."
}
