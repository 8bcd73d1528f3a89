// Package process runs external commands built with package command.
//
// An Executor spawns the child directly, without a shell, and drains stdout
// and stderr concurrently so that neither pipe can fill up and stall the
// child. Lines go to a LineConsumer as they arrive. The call returns the exit
// code once the process has exited and both streams are closed.
//
// Failures are reported through distinct error types:
//
//   - *StartError: the executable or working directory could not be used.
//   - *ConsumerError: the consumer rejected a line; the process was killed.
//   - *TimeoutError: the time limit elapsed; the process was killed.
//   - *ExecutionError: the output streams could not be read.
//
// Each type matches its sentinel with errors.Is. On Unix the child runs in its
// own process group and a kill reaches every process in that group. On
// Windows .bat and .cmd scripts are run via %ComSpec% with their arguments
// quoted so that cmd.exe passes metacharacters through untouched.
package process
