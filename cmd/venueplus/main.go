// Command venueplus compiles and sends chat macros.
package main

import "github.com/SpheneDev/VenuePlus-sub000/internal/cli"

var version = "dev"

func main() {
	cli.Main(version)
}
