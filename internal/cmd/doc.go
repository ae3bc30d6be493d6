// Package cmd implements the pausepool command line interface.
package cmd
