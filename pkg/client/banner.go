package client

import (
	"fmt"
	"io"
)

const banner = `
   ________          __  ____              __
  / ____/ /_  ____ _/ /_/ __ )____  ____ _/ /_
 / /   / __ \/ __ ` + "`" + `/ __/ __  / __ \/ __ ` + "`" + `/ __/
/ /___/ / / / /_/ / /_/ /_/ / /_/ / /_/ / /_
\____/_/ /_/\__,_/\__/_____/\____/\__,_/\__/

Welcome to Chat Boat! Type /quit to leave.
`

// PrintBanner writes the startup banner.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}
