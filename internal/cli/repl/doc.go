// Package repl provides the read-eval-print loop behind sessmesh-cli shell.
//
// Lines are split into arguments with shell-like quoting and handed to an
// Executor. The loop itself handles help, history, exit and quit.
package repl
