// Package commands defines the bgcli command tree.
//
// Commands
//
//   - play      Play a game against a computer opponent on the terminal
//   - selfplay  Run computer-vs-computer games and report the results
//   - moves     List the legal sequences for a roll
//   - archive   Inspect finished games stored in the SQLite archive
//
// # Implementation
//
// The root command loads configuration and sets up the global logger before
// any subcommand runs. Games are hosted by a gameserver.GameManager; when
// store.archive_finished is set, finished games are written to the archive at
// store.path.
package commands
