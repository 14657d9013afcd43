// SPDX-License-Identifier: MPL-2.0

package main

import (
	cmd "ctxbuild/cmd/ctxbuild"
)

func main() {
	cmd.Execute()
}
