// Package formatting renders broker entities for the CLI.
//
// A Renderer is bound to one output format. Table and wide output go through
// go-pretty tables; json and yaml output marshal the same values the tables
// were built from, so scripts see exactly what humans see.
package formatting
