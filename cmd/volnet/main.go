// Package main provides the volnet CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("volnet %s\n", version)
		return
	case "train":
		err = runTrain(os.Args[2:])
	case "char":
		err = runChar(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", "command", os.Args[1], "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("volnet - layer networks, recurrent models and Q-learning in Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  train      Train a network description on a JSON dataset")
	fmt.Println("  char       Train a character-level RNN or LSTM on a text file")
	fmt.Println("")
	fmt.Println("Run 'volnet <command> -h' for the flags of a command.")
}
