package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/patchvet/patchvet"
	"github.com/patchvet/patchvet/internal/backup"
	"github.com/patchvet/patchvet/internal/report"
	"github.com/patchvet/patchvet/internal/tui"
)

// Version info set by ldflags at build time
var (
	version    = "dev"
	commitHash = "dev"
	commitDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	checkMode := flag.Bool("check", false, "check patch format only and exit")
	dryRun := flag.Bool("dry-run", false, "simulate the patch without touching files")
	reverse := flag.Bool("R", false, "apply the patch in reverse")
	atomic := flag.Bool("atomic", false, "apply all files or none")
	backupFlag := flag.Bool("backup", false, "snapshot touched files before writing")
	undo := flag.Bool("undo", false, "restore the latest backup snapshot and exit")
	interactive := flag.Bool("tui", false, "review the dry-run report interactively")
	strip := flag.Int("p", -1, "strip this many leading path components (default from config)")
	timeout := flag.Int("timeout", 0, "per-run timeout in seconds (default from config)")
	logFile := flag.String("log", "", "log file path (empty to disable)")
	quiet := flag.Bool("q", false, "print a one-line summary only")
	showVersion := flag.Bool("version", false, "show version information and exit")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: patchvet [flags] <patch-file> [tree-root]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s-%s-%s\n", version, commitDate, commitHash)
		return
	}

	if *undo {
		root := "."
		if flag.NArg() > 0 {
			root = flag.Arg(0)
		}
		mgr, err := backup.NewManager(root)
		if err != nil {
			log.Fatalf("patchvet: %v", err)
		}
		seq, err := mgr.Latest()
		if err != nil {
			log.Fatalf("patchvet: %v", err)
		}
		if seq == 0 {
			log.Fatalf("patchvet: no backup snapshots under %s", root)
		}
		if err := mgr.Restore(seq); err != nil {
			log.Fatalf("patchvet: %v", err)
		}
		fmt.Printf("restored backup snapshot %d\n", seq)
		return
	}

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	patchPath := flag.Arg(0)
	treeRoot := "."
	if flag.NArg() > 1 {
		treeRoot = flag.Arg(1)
	}

	patchText, err := os.ReadFile(patchPath)
	if err != nil {
		log.Fatalf("Failed to read patch file: %v", err)
	}

	doc, perr := patchvet.ParseDocument(string(patchText))
	if *checkMode {
		if perr != nil {
			report.WriteParseError(os.Stderr, perr)
			os.Exit(1)
		}
		fmt.Printf("%s: well-formed (%d file(s))\n", patchPath, len(doc.Files))
		return
	}
	if perr != nil {
		report.WriteParseError(os.Stderr, perr)
		os.Exit(1)
	}

	if *reverse {
		doc = doc.Invert()
	}

	cfg := patchvet.DefaultConfig()
	if *configPath != "" {
		cfg, err = patchvet.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	// Flag overrides
	if *strip >= 0 {
		cfg.Apply.Strip = *strip
	}
	if *timeout > 0 {
		cfg.Check.TimeoutSeconds = *timeout
	}
	if *atomic {
		cfg.Apply.Atomic = true
	}
	if *backupFlag {
		cfg.Apply.Backup = true
	}
	if *logFile != "" {
		cfg.Log.Path = *logFile
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Check.TimeoutSeconds)*time.Second)
	defer cancel()

	var rep *patchvet.Report
	if *dryRun {
		rep, err = patchvet.DryRun(ctx, doc, treeRoot, cfg)
	} else {
		rep, err = patchvet.Apply(ctx, doc, treeRoot, cfg)
	}
	if err != nil {
		log.Fatalf("patchvet: %v", err)
	}

	if *interactive && *dryRun {
		if err := tui.Run(rep); err != nil {
			log.Fatalf("Failed to start review UI: %v", err)
		}
		if !rep.OK() {
			os.Exit(1)
		}
		return
	}

	if *quiet {
		fmt.Println(report.Summary(rep))
	} else {
		report.Write(os.Stdout, rep)
	}
	if !rep.OK() {
		os.Exit(1)
	}
}
