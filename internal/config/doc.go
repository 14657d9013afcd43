// SPDX-License-Identifier: MPL-2.0

// Package config loads and validates ctxbuild configuration.
//
// Configuration lives in a CUE file (config.cue) resolved from the
// platform config directory (~/.config/ctxbuild on Linux, platform
// equivalents elsewhere) or the current directory. The file is parsed
// with CUE, validated against the embedded #Config schema, and merged
// into Viper so defaults and flag overrides compose in the usual
// precedence order: flags > config file > defaults.
package config
