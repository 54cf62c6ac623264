// SPDX-License-Identifier: MIT

package recruitment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validFields() map[string]string {
	return map[string]string{
		"name":              "Jiwoo Song",
		"alias":             "shadowdial",
		"age":               "24",
		"location":          "Seoul",
		"discordHandle":     "shadowdial#1234",
		"youtubeChannelUrl": "https://www.youtube.com/@shadowdial",
		"bestAmvUrl":        "https://youtu.be/dQw4w9WgXcQ",
		"recentAmvUrl":      "https://youtube.com/watch?v=abc123",
		"introduction":      "I cut fight scenes to synthwave and love portal effects.",
		"availability":      "Weekends",
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.Nil(t, ParseForm(validFields()).Validate())
}

func TestValidate_EmptyForm(t *testing.T) {
	errs := ParseForm(map[string]string{}).Validate()

	assert.Equal(t, map[string]string{
		"name":              "Name is required.",
		"alias":             "Alias is required.",
		"age":               "Age is required.",
		"location":          "Location is required.",
		"discordHandle":     "Discord handle is required.",
		"youtubeChannelUrl": "Provide a valid URL.",
		"bestAmvUrl":        "Provide a valid URL.",
		"recentAmvUrl":      "Provide a valid URL.",
		"introduction":      "Share at least 30 characters about yourself.",
	}, errs)
}

func TestValidate_FieldRules(t *testing.T) {
	tests := []struct {
		field string
		value string
		want  string
	}{
		{"age", "abc", "Age must be a valid number."},
		{"age", "1000", "Age must be a valid number."},
		{"age", "12", "Age must be between 13 and 120."},
		{"age", "121", "Age must be between 13 and 120."},
		{"discordHandle", "x", "Discord handle is required."},
		{"discordHandle", "shadowdial", "Use username#1234 format for Discord handles."},
		{"discordHandle", "shadowdial#12", "Use username#1234 format for Discord handles."},
		{"youtubeChannelUrl", "not a url", "Provide a valid URL."},
		{"youtubeChannelUrl", "ftp://youtube.com/x", "URL must begin with http:// or https://."},
		{"bestAmvUrl", "https://vimeo.com/123", "Provide a valid YouTube URL."},
		{"recentAmvUrl", "https://notyoutube.com/watch", "Provide a valid YouTube URL."},
		{"introduction", "  too short  ", "Share at least 30 characters about yourself."},
	}
	for _, tt := range tests {
		t.Run(tt.field+"="+tt.value, func(t *testing.T) {
			fields := validFields()
			fields[tt.field] = tt.value
			errs := ParseForm(fields).Validate()
			assert.Equal(t, map[string]string{tt.field: tt.want}, errs)
		})
	}
}

func TestValidate_Boundaries(t *testing.T) {
	for _, age := range []string{"13", "120", " 42 "} {
		fields := validFields()
		fields["age"] = age
		assert.Nil(t, ParseForm(fields).Validate(), "age %q", age)
	}

	fields := validFields()
	fields["availability"] = ""
	fields["youtubeChannelUrl"] = "HTTP://WWW.YOUTUBE.COM/@loud"
	assert.Nil(t, ParseForm(fields).Validate())
}

func TestParseForm_NormalizesNFC(t *testing.T) {
	decomposed := "Jose\u0301"
	form := ParseForm(map[string]string{"name": "  " + decomposed + "\t"})
	assert.Equal(t, "Jos\u00e9", form.Name)
}
