// cmk builds, runs and compiles CMake/Ninja projects from anywhere in
// their source tree.
package main

import "github.com/albertocavalcante/cmk/cmd/cmk/internal/cli"

func main() {
	cli.Execute()
}
