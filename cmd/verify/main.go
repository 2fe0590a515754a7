package main

import (
	"fmt"
	"os"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/cmd/verify/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
