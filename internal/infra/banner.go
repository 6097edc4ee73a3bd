package infra

import "fmt"

// ANSI Color Codes
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
)

// PrintBanner displays the startup banner naming which of the two
// consumer modes this process run, plus the symbol and version.
func PrintBanner(cfg *Config, headless bool) {
	color := ColorCyan
	modeDesc := "DECISION (book + strategy + execution)"
	if headless {
		color = ColorGreen
		modeDesc = "HEADLESS (binary log recorder only)"
	}

	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#               Cortex Market Pipeline                    #%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#   SYMBOL:  %-45s #%s\n", color, cfg.Symbol, ColorReset)
	fmt.Printf("%s#   MODE:    %-45s #%s\n", color, modeDesc, ColorReset)
	fmt.Printf("%s#   VERSION: %-45s #%s\n", color, cfg.App.Version, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Println()
}
