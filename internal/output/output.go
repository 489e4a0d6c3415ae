package output

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PrintRight prints text right-aligned on the current terminal line,
// overwriting whatever the status bar left there.
func PrintRight(text string) {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		width = 80
	}

	padding := width - len(text)
	if padding < 0 {
		padding = 0
	}

	fmt.Printf("\r%s%s", strings.Repeat(" ", padding), text)
}

// ProgressBar renders a percent value as a bar of the given width.
func ProgressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := (percent * width) / 100

	return strings.Repeat("█", filled) + strings.Repeat(" ", width-filled)
}
