// Package sym defines canonical symbols for pmcal commands and log lines.
// These symbols are stable across CLI output and structured logs.
package sym

// Command symbols, one per top-level CLI command.
const (
	AM       = "≡" // am: configuration and system settings
	Client   = "⌂" // client: schedule owners
	Calendar = "▦" // calendar: visit slots per client and month
	Complete = "✓" // complete: completion toggle
	Series   = "⟳" // series: recurring job series
	Backlog  = "⧗" // backlog: cycles needing scheduling attention
	Order    = "⚒" // workorder: work-order status changes
)

// System infrastructure symbols.
const (
	Refresh = "꩜" // periodic nextDue refresh
	DB      = "⊔" // database/storage layer
)

// SymbolToCommand maps each command symbol to its CLI command name.
var SymbolToCommand = map[string]string{
	AM:       "am",
	Client:   "client",
	Calendar: "calendar",
	Complete: "complete",
	Series:   "series",
	Backlog:  "backlog",
	Order:    "workorder",
	Refresh:  "refresh",
	DB:       "db",
}

// CommandToSymbol is the inverse of SymbolToCommand.
var CommandToSymbol = func() map[string]string {
	m := make(map[string]string, len(SymbolToCommand))
	for s, c := range SymbolToCommand {
		m[c] = s
	}
	return m
}()
