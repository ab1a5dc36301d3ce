// Package internal groups packages that are private to goSession.
//
// # Sub-packages
//
//   - apitest: a gin-based fake of the collaborator API, with fault injection
//   - config: settings from the environment, .env and config files (viper, godotenv)
//   - flows: pure-function orchestrators for every Manager operation
//   - logger: leveled logger behind the Manager's Logger interface
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
