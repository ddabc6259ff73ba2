package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/kpauljoseph/highlightankify/pkg/version"
)

func main() {
	root := newRootCmd()
	release, commit := version.Release()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(release),
		fang.WithCommit(commit),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
