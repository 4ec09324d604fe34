// Command genctl is the maintenance CLI for GenStudio.
//
// Usage:
//
//	genctl [--database-dir DIR] <command>
//
// Commands:
//
//	prep <file>... [-o DIR]
//	        Convert and resize reference images exactly as the server
//	        would before upload, writing the results to DIR.
//
//	models [--buffer 2s]
//	        Print the model registry with each model's average and the
//	        estimated duration used for progress.
//
//	set-model <id> <seconds|none> [--name NAME]
//	        Create or update a registry entry. "none" clears the average
//	        so the default is used.
//
// Environment:
//
//	DATABASE_DIR - Path to database directory (default: /database)
package main
