// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"
)

const testSchema = `
#Build: {
	image:    string
	no_cache: bool | *true
}
`

type testBuild struct {
	Image   string `json:"image"`
	NoCache bool   `json:"no_cache"`
}

func TestParseAndDecode_Valid(t *testing.T) {
	data := []byte(`image: "lesion-analysis"`)

	result, err := ParseAndDecode[testBuild]([]byte(testSchema), data, "#Build",
		WithFilename("build.cue"))
	if err != nil {
		t.Fatalf("ParseAndDecode() error: %v", err)
	}
	if result.Value.Image != "lesion-analysis" {
		t.Errorf("Image = %q, want lesion-analysis", result.Value.Image)
	}
	if !result.Value.NoCache {
		t.Error("NoCache default should be true")
	}
}

func TestParseAndDecode_WrongType(t *testing.T) {
	data := []byte(`image: 42`)

	_, err := ParseAndDecode[testBuild]([]byte(testSchema), data, "#Build",
		WithFilename("build.cue"))
	if err == nil {
		t.Fatal("ParseAndDecode() should fail for wrong field type")
	}
	if !strings.Contains(err.Error(), "build.cue") {
		t.Errorf("error %q missing filename", err.Error())
	}
}

func TestParseAndDecode_SyntaxError(t *testing.T) {
	data := []byte(`image: "unterminated`)

	_, err := ParseAndDecodeString[testBuild](testSchema, data, "#Build")
	if err == nil {
		t.Fatal("ParseAndDecode() should fail for invalid CUE syntax")
	}
}

func TestParseAndDecode_FileSizeLimit(t *testing.T) {
	data := []byte(`image: "x"`)

	_, err := ParseAndDecode[testBuild]([]byte(testSchema), data, "#Build",
		WithMaxFileSize(1))
	if err == nil {
		t.Fatal("ParseAndDecode() should fail when data exceeds max file size")
	}
}

func TestParseAndDecode_UnknownSchemaPath(t *testing.T) {
	data := []byte(`image: "x"`)

	_, err := ParseAndDecode[testBuild]([]byte(testSchema), data, "#Missing")
	if err == nil {
		t.Fatal("ParseAndDecode() should fail for unknown schema path")
	}
}
