// Package config loads foodstand settings from a TOML file, an optional
// .env file and FOODSTAND_* environment variables, in increasing order of
// precedence. A missing file yields defaults; a missing remote URL or API
// key leaves the remote ledger unconfigured and the app runs local-only.
package config
