// Package command describes external process invocations.
//
// A Command records an executable, its ordered arguments, a working directory
// and a set of environment operations. Nothing is interpreted by a shell and
// nothing is escaped here: quoting rules differ per platform and belong to the
// process package that spawns the command.
//
// Environment handling:
//
//   - New snapshots os.Environ() as the base environment
//   - SetEnv and UnsetEnv are recorded in order and replayed on a copy of the
//     base every time Build is called
//   - ReplaceEnv swaps the base for an explicit map and forgets earlier
//     operations
//
// Keys are case-sensitive on every platform.
package command
