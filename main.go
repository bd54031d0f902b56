package main

import "github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/cmd"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)
	cmd.Execute()
}
