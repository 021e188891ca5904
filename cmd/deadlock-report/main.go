// Command deadlock-report prints an existing NO_DEADLOCKS report file to
// stdout unchanged, decompressing it first if it looks like a
// reportarchive segment.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/mantis-labs/deadlock/advanced/reportarchive"
)

var (
	// Version is set during build time.
	Version = "dev"
	// BuildTime is set during build time.
	BuildTime = "unknown"
	// GitCommit is set during build time.
	GitCommit = "unknown"
)

func printVersion() {
	fmt.Printf("deadlock-report %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func main() {
	versionFlag := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *versionFlag {
		printVersion()
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: deadlock-report <path>")
		os.Exit(2)
	}

	path := args[0]
	var data []byte
	var err error

	if isArchiveSegment(path) {
		data, err = reportarchive.Restore(path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "deadlock-report: %v\n", err)
		os.Exit(1)
	}

	os.Stdout.Write(data)
}

func isArchiveSegment(path string) bool {
	for _, ext := range []string{".lz4", ".snappy", ".zstd"} {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
