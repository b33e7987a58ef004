// Package config loads the Configuration covering every tunable this module
// exposes: defaults applied first, then a TOML file, then environment
// variables (env wins), mirroring the layered Default/Load shape used
// across this module's reference stack.
package config
