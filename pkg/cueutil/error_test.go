// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatError_Nil(t *testing.T) {
	if got := FormatError(nil, "config.cue"); got != nil {
		t.Errorf("FormatError(nil) = %v, want nil", got)
	}
}

func TestFormatError_NonCUEError(t *testing.T) {
	err := FormatError(errors.New("plain failure"), "config.cue")
	if err == nil {
		t.Fatal("FormatError returned nil for non-nil error")
	}
	if !strings.Contains(err.Error(), "config.cue") {
		t.Errorf("error %q missing file path", err.Error())
	}
	if !strings.Contains(err.Error(), "plain failure") {
		t.Errorf("error %q missing original message", err.Error())
	}
}

func TestFormatPath(t *testing.T) {
	tests := []struct {
		name string
		path []string
		want string
	}{
		{"empty", nil, ""},
		{"single field", []string{"image"}, "image"},
		{"nested fields", []string{"hooks", "pre_build"}, "hooks.pre_build"},
		{"array index", []string{"hooks", "0", "script"}, "hooks[0].script"},
		{"leading index stays plain", []string{"0", "image"}, "0.image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatPath(tt.path); got != tt.want {
				t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestCheckFileSize(t *testing.T) {
	data := make([]byte, 100)

	if err := CheckFileSize(data, 100, "config.cue"); err != nil {
		t.Errorf("CheckFileSize at limit should pass: %v", err)
	}
	err := CheckFileSize(data, 99, "config.cue")
	if err == nil {
		t.Fatal("CheckFileSize over limit should fail")
	}
	if !strings.Contains(err.Error(), "config.cue") {
		t.Errorf("error %q missing filename", err.Error())
	}
}
