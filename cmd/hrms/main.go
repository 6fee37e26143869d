package main

import (
	"context"
	"fmt"
	"os"

	"github.com/phillip-england/hrms/internal/hrmscli"
)

func main() {
	if err := hrmscli.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
