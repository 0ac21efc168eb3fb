package models

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewCommand creates a Cobra command tree for artifact provisioning.
// The returned command should be added to a parent CLI's root command.
//
// Commands provided:
//   - models ensure [group/name] [--all] [--force]
//   - models verify [group/name] [--all]
//   - models list [--catalog]
//   - models info <group/name>
//   - models path <group/name>
//   - models remove <group/name>
//   - models tools [name...]
//
// Global flags: --json, --quiet, --verbose
func NewCommand(cfg Config, opts ...ManagerOption) *cobra.Command {
	var (
		jsonOutput bool
		quiet      bool
		verbose    bool
	)

	// Manager will be created in PersistentPreRunE
	var mgr Manager

	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage model artifacts",
		Long:  "Download, verify, and manage the pretrained model files the face recognition pipeline depends on.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip manager creation for help commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			var err error
			mgr, err = NewManager(cfg, opts...)
			if err != nil {
				return fmt.Errorf("failed to initialize manager: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	cmd.AddCommand(ensureCmd(&mgr, &quiet))
	cmd.AddCommand(verifyCmd(&mgr, &quiet))
	cmd.AddCommand(listCmd(&mgr, &jsonOutput))
	cmd.AddCommand(infoCmd(&mgr, &jsonOutput))
	cmd.AddCommand(pathCmd(&mgr))
	cmd.AddCommand(removeCmd(&mgr, &quiet))
	cmd.AddCommand(toolsCmd(&mgr, &quiet))

	return cmd
}

func ensureCmd(mgr *Manager, quiet *bool) *cobra.Command {
	var (
		all         bool
		force       bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "ensure [group/name]",
		Short: "Download and verify model artifacts",
		Long:  "Ensure a model artifact exists locally, decompressed and checksum-verified. With --all, provisions every catalog entry.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if all == (len(args) == 1) {
				return fmt.Errorf("specify either an artifact reference or --all")
			}

			var opts []EnsureOption
			if force {
				opts = append(opts, WithForce())
			}

			if all {
				opts = append(opts, WithConcurrency(concurrency))
				if !*quiet {
					opts = append(opts, WithProgress(lineProgress(cmd.OutOrStdout())))
				}
				if err := (*mgr).EnsureAll(ctx, opts...); err != nil {
					return reportMismatch(cmd.ErrOrStderr(), err)
				}
				if !*quiet {
					fmt.Fprintln(cmd.OutOrStdout(), "All artifacts are installed and verified")
				}
				return nil
			}

			ref, err := ParseArtifactRef(args[0])
			if err != nil {
				return err
			}

			var finishBar func()
			if !*quiet {
				var bar *progressBar
				opts = append(opts, WithProgress(func(p FetchProgress) {
					switch p.Phase {
					case "connect":
						fmt.Fprintf(cmd.OutOrStdout(), "Fetching %s...\n", p.Ref)
					case "download":
						if bar == nil {
							bar = newProgressBar(cmd.OutOrStdout(), p.BytesTotal)
						}
						bar.update(p.BytesReceived)
					case "decompress":
						if bar != nil {
							bar.finish()
							bar = nil
						}
						fmt.Fprintln(cmd.OutOrStdout(), "Decompressing...")
					case "verify":
						fmt.Fprintln(cmd.OutOrStdout(), "Verifying checksum...")
					}
				}))
				finishBar = func() {
					if bar != nil {
						bar.finish()
					}
				}
			}

			err = (*mgr).Ensure(ctx, ref, opts...)
			if finishBar != nil {
				finishBar()
			}
			if err != nil {
				if errors.Is(err, ErrAlreadyInstalled) {
					if !*quiet {
						fmt.Fprintf(cmd.OutOrStdout(), "Artifact %s is already installed and verified (use --force to re-download)\n", ref)
					}
					return nil
				}
				return reportMismatch(cmd.ErrOrStderr(), err)
			}

			if !*quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Successfully installed %s\n", ref)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Ensure every artifact in the catalog")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Force re-download even if already installed")
	cmd.Flags().IntVar(&concurrency, "concurrency", DefaultConcurrency, "Artifacts to provision in parallel with --all")
	return cmd
}

func verifyCmd(mgr *Manager, quiet *bool) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "verify [group/name]",
		Short: "Verify installed artifact checksums",
		Long:  "Recompute the digest of installed artifacts and compare against the catalog checksum.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if all == (len(args) == 1) {
				return fmt.Errorf("specify either an artifact reference or --all")
			}

			verifyOne := func(ref ArtifactRef) error {
				if err := (*mgr).Verify(ctx, ref); err != nil {
					return reportMismatch(cmd.ErrOrStderr(), err)
				}
				if !*quiet {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", ref)
				}
				return nil
			}

			if !all {
				ref, err := ParseArtifactRef(args[0])
				if err != nil {
					return err
				}
				return verifyOne(ref)
			}

			installed, err := (*mgr).ListInstalled(ctx)
			if err != nil {
				return err
			}
			if len(installed) == 0 {
				if !*quiet {
					fmt.Fprintln(cmd.OutOrStdout(), "No artifacts installed")
				}
				return nil
			}

			var firstErr error
			for _, m := range installed {
				if err := verifyOne(m.Ref); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Verify every installed artifact")
	return cmd
}

func listCmd(mgr *Manager, jsonOutput *bool) *cobra.Command {
	var showCatalog bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List artifacts",
		Long:  "List installed artifacts, or the provisionable catalog with --catalog.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if showCatalog {
				artifacts, err := (*mgr).ListCatalog(ctx)
				if err != nil {
					return err
				}
				return outputCatalog(cmd.OutOrStdout(), artifacts, *jsonOutput)
			}

			installed, err := (*mgr).ListInstalled(ctx)
			if err != nil {
				return err
			}
			return outputInstalled(cmd.OutOrStdout(), installed, *jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&showCatalog, "catalog", false, "List the provisionable catalog instead of installed artifacts")
	return cmd
}

func infoCmd(mgr *Manager, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info <group/name>",
		Short: "Show artifact information",
		Long:  "Show catalog and install details for an artifact.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ref, err := ParseArtifactRef(args[0])
			if err != nil {
				return err
			}

			artifact, err := (*mgr).Resolve(ctx, ref)
			if err != nil {
				return err
			}

			installed, instErr := (*mgr).GetInstalled(ctx, ref)
			return outputDetail(cmd.OutOrStdout(), artifact, installed, instErr == nil, *jsonOutput)
		},
	}
}

func pathCmd(mgr *Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "path <group/name>",
		Short: "Print path to installed artifact",
		Long:  "Print the filesystem path to an installed artifact's file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ref, err := ParseArtifactRef(args[0])
			if err != nil {
				return err
			}

			path, err := (*mgr).Path(ctx, ref)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func removeCmd(mgr *Manager, quiet *bool) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove <group/name>",
		Short: "Remove an installed artifact",
		Long:  "Delete an installed artifact file and its ledger entry.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ref, err := ParseArtifactRef(args[0])
			if err != nil {
				return err
			}

			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "Remove %s? [y/N]: ", ref)
				if !confirmPrompt(cmd.InOrStdin()) {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			if err := (*mgr).Remove(ctx, ref); err != nil {
				return err
			}

			if !*quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", ref)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	return cmd
}

func toolsCmd(mgr *Manager, quiet *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "tools [name...]",
		Short: "Check required external tools",
		Long:  "Check that required external tools resolve on PATH. With no arguments, checks the requirements declared by every catalog entry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*mgr).VerifyTools(cmd.Context(), args...); err != nil {
				return err
			}
			if !*quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "All required tools are available")
			}
			return nil
		},
	}
}

// lineProgress returns a progress callback that prints one line per phase
// transition, suitable for interleaved multi-artifact output.
func lineProgress(w io.Writer) func(FetchProgress) {
	var mu sync.Mutex
	seen := make(map[string]string)

	return func(p FetchProgress) {
		mu.Lock()
		defer mu.Unlock()
		key := p.Ref.String()
		if seen[key] == p.Phase {
			return
		}
		seen[key] = p.Phase

		switch p.Phase {
		case "connect":
			fmt.Fprintf(w, "%s: downloading...\n", p.Ref)
		case "decompress":
			fmt.Fprintf(w, "%s: decompressing...\n", p.Ref)
		case "verify":
			fmt.Fprintf(w, "%s: verifying...\n", p.Ref)
		}
	}
}

// reportMismatch prints the user-facing recovery instruction for checksum
// failures before handing the error back for exit-code mapping.
func reportMismatch(w io.Writer, err error) error {
	var mismatch *ChecksumMismatchError
	if errors.As(err, &mismatch) {
		fmt.Fprintf(w, "Checksum mismatch for %s\n", mismatch.Path)
		fmt.Fprintf(w, "  expected: %s:%s\n", mismatch.Algo, mismatch.Expected)
		fmt.Fprintf(w, "  actual:   %s:%s\n", mismatch.Algo, mismatch.Actual)
		fmt.Fprintln(w, "The file is corrupt or incomplete. Delete it and re-run ensure to download it again.")
	}
	return err
}

// confirmPrompt reads from stdin and returns true only if the user types
// 'y' or 'yes'. Returns false for empty input or any other response.
func confirmPrompt(r io.Reader) bool {
	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		response := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return response == "y" || response == "yes"
	}
	return false
}

// Output helpers

func outputInstalled(w io.Writer, artifacts []InstalledArtifact, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(artifacts)
	}

	if len(artifacts) == 0 {
		fmt.Fprintln(w, "No artifacts installed")
		return nil
	}

	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ARTIFACT\tSIZE\tDIGEST\tINSTALLED")
	for _, a := range artifacts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			a.Ref,
			formatSize(a.Size),
			shortDigest(a.Digest),
			a.InstalledAt.Format("2006-01-02 15:04"),
		)
	}
	return tw.Flush()
}

func outputCatalog(w io.Writer, artifacts []Artifact, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(artifacts)
	}

	if len(artifacts) == 0 {
		fmt.Fprintln(w, "Catalog is empty")
		return nil
	}

	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ARTIFACT\tFILE\tCOMPRESSION\tCHECKSUM")
	for _, a := range artifacts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			a.Ref,
			a.FileName,
			a.Compression,
			shortDigest(a.Checksum.String()),
		)
	}
	return tw.Flush()
}

func outputDetail(w io.Writer, a Artifact, installed InstalledArtifact, isInstalled, asJSON bool) error {
	if asJSON {
		detail := struct {
			Artifact  Artifact           `json:"artifact"`
			Installed *InstalledArtifact `json:"installed,omitempty"`
		}{Artifact: a}
		if isInstalled {
			detail.Installed = &installed
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	}

	fmt.Fprintf(w, "Artifact:     %s\n", a.Ref)
	fmt.Fprintf(w, "File:         %s\n", a.FileName)
	fmt.Fprintf(w, "Source:       %s\n", a.URL)
	fmt.Fprintf(w, "Compression:  %s\n", a.Compression)
	fmt.Fprintf(w, "Checksum:     %s\n", a.Checksum)
	if len(a.RequiredTools) > 0 {
		fmt.Fprintf(w, "Tools:        %s\n", strings.Join(a.RequiredTools, ", "))
	}

	if isInstalled {
		fmt.Fprintf(w, "Installed:    %s\n", installed.InstalledAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "Size:         %s\n", formatSize(installed.Size))
		fmt.Fprintf(w, "Path:         %s\n", installed.Path)
	} else {
		fmt.Fprintf(w, "Installed:    no\n")
	}
	return nil
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// shortDigest truncates long digests for table display.
func shortDigest(d string) string {
	if len(d) > 20 {
		return d[:20] + "..."
	}
	return d
}

// progressBar renders a single-stream download progress bar.
// Format: Downloading [============>                 ] 45% (5.2 MB/s, elapsed: 30s, remaining: 2m 15s)
type progressBar struct {
	w         io.Writer
	total     int64
	startTime time.Time
	started   bool
}

// newProgressBar creates a progress bar for total expected bytes.
// A zero total renders received bytes without a percentage.
func newProgressBar(w io.Writer, total int64) *progressBar {
	return &progressBar{
		w:         w,
		total:     total,
		startTime: time.Now(),
	}
}

// update redraws the bar for the given received byte count.
func (b *progressBar) update(received int64) {
	if !b.started {
		// Hide cursor for the duration of the bar
		fmt.Fprint(b.w, "\x1b[?25l")
		b.started = true
	}

	elapsed := time.Since(b.startTime)

	var speed float64
	if elapsed.Seconds() > 0 && received > 0 {
		speed = float64(received) / elapsed.Seconds()
	}

	if b.total <= 0 {
		fmt.Fprintf(b.w, "\r\x1b[KDownloading %s (%s, elapsed: %s)",
			formatSize(received), formatSpeed(speed), formatDuration(elapsed))
		return
	}

	pct := float64(received) / float64(b.total) * 100
	if pct > 100 {
		pct = 100
	}

	var remaining time.Duration
	if speed > 0 && received < b.total {
		remaining = time.Duration(float64(b.total-received)/speed) * time.Second
	}

	const barWidth = 30
	filled := int(pct / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}

	var bar string
	if filled >= barWidth {
		bar = strings.Repeat("=", barWidth)
	} else if filled > 0 {
		bar = strings.Repeat("=", filled) + ">" + strings.Repeat(" ", barWidth-filled-1)
	} else {
		bar = ">" + strings.Repeat(" ", barWidth-1)
	}

	fmt.Fprintf(b.w, "\r\x1b[KDownloading [%s] %.0f%% (%s, elapsed: %s, remaining: %s)",
		bar, pct, formatSpeed(speed), formatDuration(elapsed), formatDuration(remaining))
}

// finish restores the cursor and terminates the bar line.
func (b *progressBar) finish() {
	if b.started {
		fmt.Fprint(b.w, "\x1b[?25h\n")
		b.started = false
	}
}

func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatSpeed formats bytes per second as KB/s or MB/s.
func formatSpeed(bytesPerSec float64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	if bytesPerSec >= MB {
		return fmt.Sprintf("%.1f MB/s", bytesPerSec/MB)
	}
	if bytesPerSec >= KB {
		return fmt.Sprintf("%.1f KB/s", bytesPerSec/KB)
	}
	return fmt.Sprintf("%.0f B/s", bytesPerSec)
}

// formatDuration formats a duration as human-readable text (e.g., "5s", "2m 30s", "1h 5m").
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	d = d.Round(time.Second)

	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60

	if hours > 0 {
		if mins > 0 {
			return fmt.Sprintf("%dh %dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	if mins > 0 {
		if secs > 0 {
			return fmt.Sprintf("%dm %ds", mins, secs)
		}
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", secs)
}
