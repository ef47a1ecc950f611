// Command parallax follows Elite Dangerous journals and keeps a live model of
// the current star system.
package main

import "github.com/papapumpkin/parallax/cmd"

func main() {
	cmd.Execute()
}
