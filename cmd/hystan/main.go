// Command hystan renders hysteresis sample files into tiled chart composites and an HTML gallery.
package main

import "github.com/makoty26/HysteresisAnalyzer/cmd/hystan/cmd"

func main() {
	cmd.Execute()
}
