// Package config loads and validates weblisk.json project configuration.
//
// Configuration is resolved in three layers, each overriding the last:
//
//  1. Built-in defaults (New)
//  2. weblisk.json (Load, LoadFile, LoadFromWorkingDir)
//  3. WEBLISK_* environment variables (ApplyEnv)
//
// A dotenv file can seed the environment first via LoadEnvFile, but only
// when the caller opts in; nothing here reads .env implicitly.
//
// Durations are stored as strings in the JSON schema ("5s", "168h") and
// surfaced as time.Duration through accessor methods. Validate reports
// unparseable values with coded errors; the accessors themselves fall
// back to defaults so they can be called without error handling.
//
// Example:
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    return err
//	}
//	if err := cfg.ApplyEnv(); err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	addr := cfg.Address()
package config
