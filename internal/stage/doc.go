// SPDX-License-Identifier: MPL-2.0

// Package stage implements the build context staging pipeline.
//
// A staged build copies the dependency manifest into the build context,
// archives the scripts directory next to it, invokes the container engine
// build, then removes both staged files again. The context directory is
// treated as externally owned: ctxbuild populates and cleans it but never
// creates or destroys it.
//
// Cleanup runs on every path, success or failure, unless the caller asked
// to keep the staged files. Staging refuses to start when staged files are
// already present so two runs cannot silently overwrite each other.
package stage
