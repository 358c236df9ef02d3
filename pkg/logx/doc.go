// Package logx is crontrol's structured logging, a thin layer over zerolog.
//
// Console output is human readable with a short file:line caller; the
// optional file sink is JSON. Service.Apply swaps sinks and level when the
// config file changes, and every Logger derived from the service follows.
package logx
