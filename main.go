// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/lmm-git/docker-postgres-multi/cmd/entrypoint"

func main() {
	cmd.Execute()
}
