package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"murmur/internal/ipc"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: murmurctl <start|stop|toggle|new_session|clear|status>\n")
	os.Exit(2)
}

func main() {
	cli.Usage = usage
	cli.Parse()

	args := cli.Args()
	if len(args) != 1 {
		usage()
	}

	reply, err := ipc.SendCommand(args[0])
	if err != nil {
		fmt.Println("murmurd not running:", err)
		os.Exit(1)
	}
	fmt.Print(reply)
}
