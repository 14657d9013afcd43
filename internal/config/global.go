// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride redirects ConfigDir while tests run. Tests cannot rely
// on rewriting HOME because os.UserHomeDir ignores the environment on some
// platforms, and resolving the real directory would touch the user's files.
var configDirOverride string

// Reset clears the config directory override. Call from test cleanup.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride points ConfigDir at dir until Reset is called.
// Intended for tests that need an isolated config directory.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
