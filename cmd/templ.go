package cmd

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}

Global Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`

const DESCRIPTION = `
deadline schedules one-shot, repeating and cron timers on a long
running daemon and reports every firing over JSON-RPC.
`

const (
	AfterDescription = `The after command registers a one-shot timer that
fires once the given delay has passed.

Example:
        deadline after 90s --label tea

`
	AtDescription = `The at command registers a one-shot timer that fires
at an RFC 3339 instant.

Example:
        deadline at 2026-12-31T23:59:00Z --label countdown

`
	EveryDescription = `The every command registers a timer that fires
repeatedly. The next firing is measured from the
end of the previous one.

Example:
        deadline every 15m --label heartbeat

`
	CronDescription = `The cron command registers a timer driven by a
five-field cron expression.

Example:
        deadline cron "0 9 * * 1-5" --label standup

`
	CancelDescription = `The cancel command removes a timer by the id
printed when it was registered.

Example:
        deadline cancel 7

`
	ListDescription = `The list command displays the timers the daemon
is tracking.

Example:
        deadline list

`
	WatchDescription = `The watch command prints every timer firing as it
happens until interrupted.

Example:
        deadline watch

`
	HistoryDescription = `The history command shows the most recent
firings recorded in the daemon journal.

Example:
        deadline history -n 20

`
	DaemonDescription = `The daemon command runs the deadline daemon in the
foreground. It reads its configuration from the
file given by --config or the DEADLINE_CONFIG
environment variable.

Example:
        deadline daemon --config /etc/deadline.yaml

`
)
